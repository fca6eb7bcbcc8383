// Slurm node lists, as printed by sacct in the NodeList column and accepted by scontrol.
//
//   node-list ::= pattern ("," pattern)*
//   pattern   ::= fragment+
//   fragment  ::= literal | range
//   literal   ::= <longest nonempty string of characters not containing "[" or ",">
//   range     ::= "[" range-elt ("," range-elt)* "]"
//   range-elt ::= number | number "-" number
//   number    ::= <nonempty string of 0..9>
//
// Numbers keep their zero padding: c1-[08-10] expands to c1-08, c1-09, c1-10.  In a range A-B, A
// must be no greater than B.
//
// Sacct prints "None assigned" for a job that has no nodes yet; that is not a node list and Expand
// returns it as an error.

package nodelist

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Split a node list into its patterns.  Commas inside brackets do not separate patterns.
func Split(s string) ([]string, error) {
	patterns := make([]string, 0)
	if s == "" {
		return patterns, nil
	}
	insideBrackets := false
	start := -1
	for ix, c := range s {
		switch {
		case c == '[':
			if insideBrackets {
				return nil, fmt.Errorf("Illegal node list: nested brackets")
			}
			insideBrackets = true
		case c == ']':
			if !insideBrackets {
				return nil, fmt.Errorf("Illegal node list: unmatched end bracket")
			}
			insideBrackets = false
		case c == ',' && !insideBrackets:
			if start == -1 {
				return nil, fmt.Errorf("Illegal node list: empty node name")
			}
			patterns = append(patterns, s[start:ix])
			start = -1
			continue
		}
		if start == -1 {
			start = ix
		}
	}
	if insideBrackets {
		return nil, fmt.Errorf("Illegal node list: missing end bracket")
	}
	if start == -1 {
		return nil, fmt.Errorf("Illegal node list: empty node name")
	}
	return append(patterns, s[start:]), nil
}

// Expand a node list into node names, in the order the list names them.
func Expand(s string) ([]string, error) {
	patterns, err := Split(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	nodes := make([]string, 0)
	for _, p := range patterns {
		if strings.ContainsRune(p, ' ') {
			return nil, fmt.Errorf("Not a node list: %s", s)
		}
		xs, err := expandPattern(p)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, xs...)
	}
	return nodes, nil
}

var errNoMoreFragments = errors.New("No more fragments")

func expandPattern(s string) ([]string, error) {
	r := strings.NewReader(s)
	fragments := make([][]string, 0)
	for {
		fragment, err := parseFragment(r)
		if err != nil {
			if err == errNoMoreFragments {
				break
			}
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	if len(fragments) == 0 {
		return nil, errors.New("Empty node name")
	}
	tails := []string{""}
	for i := len(fragments) - 1; i >= 0; i-- {
		xs := make([]string, 0, len(tails)*len(fragments[i]))
		for _, f := range fragments[i] {
			for _, t := range tails {
				xs = append(xs, f+t)
			}
		}
		tails = xs
	}
	return tails, nil
}

// A literal is returned as a singleton, a range as its formatted numbers.
func parseFragment(r *strings.Reader) ([]string, error) {
	switch c := getc(r); c {
	case 0:
		return nil, errNoMoreFragments
	case '[':
		needOne := true
		numbers := []string{}
		for {
			if eatc(r, ']') {
				if needOne {
					return nil, errors.New("Expected number")
				}
				break
			}
			needOne = false
			first, err := readNumber(r)
			if err != nil {
				return nil, err
			}
			if eatc(r, '-') {
				last, err := readNumber(r)
				if err != nil {
					return nil, err
				}
				xs, err := expandRange(first, last)
				if err != nil {
					return nil, err
				}
				numbers = append(numbers, xs...)
			} else {
				numbers = append(numbers, first)
			}
			if eatc(r, ',') {
				needOne = true
			} else if eatc(r, ']') {
				ungetc(r, ']')
			} else {
				return nil, errors.New("Unexpected character")
			}
		}
		return numbers, nil
	case ',', ']':
		return nil, fmt.Errorf("Unexpected '%c'", c)
	default:
		literal := string(c)
		for {
			c := getc(r)
			if c == 0 || c == '[' || c == ',' {
				ungetc(r, c)
				break
			}
			literal = literal + string(c)
		}
		return []string{literal}, nil
	}
}

// The width of the first number is the padding of all numbers in the range.
func expandRange(first, last string) ([]string, error) {
	n, err := strconv.Atoi(first)
	if err != nil {
		return nil, err
	}
	m, err := strconv.Atoi(last)
	if err != nil {
		return nil, err
	}
	if n > m {
		return nil, errors.New("Bad range")
	}
	width := 0
	if len(first) > 1 && first[0] == '0' {
		width = len(first)
	}
	xs := make([]string, 0, m-n+1)
	for ; n <= m; n++ {
		xs = append(xs, fmt.Sprintf("%0*d", width, n))
	}
	return xs, nil
}

func readNumber(r io.RuneScanner) (string, error) {
	cs := ""
	for {
		c := getc(r)
		if c < '0' || c > '9' {
			ungetc(r, c)
			break
		}
		cs = cs + string(c)
	}
	if cs == "" {
		return "", errors.New("Expected number")
	}
	return cs, nil
}

func eatc(r io.RuneScanner, x rune) bool {
	c := getc(r)
	if c == x {
		return true
	}
	ungetc(r, c)
	return false
}

func getc(r io.RuneScanner) rune {
	c, _, err := r.ReadRune()
	if err == io.EOF {
		return 0
	}
	return c
}

func ungetc(r io.RuneScanner, c rune) {
	if c != 0 {
		r.UnreadRune()
	}
}
