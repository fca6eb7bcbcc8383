package record

import (
	"errors"
	"slices"
	"strings"
)

// Combinators merge the values of one column from two rows.  They are pure and are applied left to
// right in the order the rows were emitted by the accounting system; several of them prefer the
// left operand on ties, so that order is significant.

var ErrNoRows = errors.New("No rows to combine")

// Fold the rows into one by applying each attribute's combinator column-wise, starting from the
// first row.
func Combine(rows []Row) (Row, error) {
	if len(rows) == 0 {
		return Row{}, ErrNoRows
	}
	acc := rows[0]
	for _, r := range rows[1:] {
		for i := range acc {
			acc[i] = Schema[i].Combine(acc[i], r[i])
		}
	}
	return acc, nil
}

// For attributes that are the same for all rows of a job.
func KeepFirst(a, b Value) Value {
	if a != nil && !a.Empty() {
		return a
	}
	return b
}

func Max(a, b Value) Value {
	switch x := a.(type) {
	case Count:
		if y, ok := b.(Count); ok && y > x {
			return y
		}
	case ByteSize:
		if y, ok := b.(ByteSize); ok && y > x {
			return y
		}
	case Duration:
		if y, ok := b.(Duration); ok && y.TotalSeconds() > x.TotalSeconds() {
			return y
		}
	}
	return a
}

func Sum(a, b Value) Value {
	switch x := a.(type) {
	case Count:
		if y, ok := b.(Count); ok {
			return x + y
		}
	case ByteSize:
		if y, ok := b.(ByteSize); ok {
			return x + y
		}
	}
	return a
}

// Peak memory is not additive across steps but disk traffic is.
func MaxTot(a, b Value) Value {
	x, ok1 := a.(Usage)
	y, ok2 := b.(Usage)
	if !ok1 || !ok2 {
		return a
	}
	return Usage{Mem: max(x.Mem, y.Mem), Disk: x.Disk + y.Disk}
}

// Union of comma-separated state tokens, sorted and deduplicated.  When the steps disagree the
// COMPLETED token is dropped, since it is the least informative.
func Append(a, b Value) Value {
	x, _ := a.(Text)
	y, _ := b.(Text)
	return Text(AppendStates(string(x), string(y)))
}

func AppendStates(a, b string) string {
	tokens := make([]string, 0)
	for _, s := range []string{a, b} {
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	slices.Sort(tokens)
	tokens = slices.Compact(tokens)
	if len(tokens) > 1 {
		tokens = slices.DeleteFunc(tokens, func(t string) bool { return t == "COMPLETED" })
	}
	return strings.Join(tokens, ",")
}

func TimeMaxValue(a, b Value) Value {
	x, _ := a.(Stamp)
	y, _ := b.(Stamp)
	return Stamp(TimeMax(string(x), string(y)))
}

func TimeMinValue(a, b Value) Value {
	x, _ := a.(Stamp)
	y, _ := b.(Stamp)
	return Stamp(TimeMin(string(x), string(y)))
}

func isVoidTime(s string) bool {
	return s == "" || s == Invalid
}

// Durations compare by length when both sides are durations, everything else (ISO timestamps and
// the Unknown sentinel) compares as text.
func compareTimes(a, b string) int {
	if isDuration(a) && isDuration(b) {
		x, y := ParseDuration(a).TotalSeconds(), ParseDuration(b).TotalSeconds()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// UNLIMITED always wins; empty and INVALID always lose.
func TimeMax(a, b string) string {
	switch {
	case a == Unlimited || b == Unlimited:
		return Unlimited
	case isVoidTime(a):
		return b
	case isVoidTime(b):
		return a
	}
	if compareTimes(a, b) >= 0 {
		return a
	}
	return b
}

// Empty and INVALID always lose, and so does UNLIMITED against a finite value.
func TimeMin(a, b string) string {
	switch {
	case isVoidTime(a):
		return b
	case isVoidTime(b):
		return a
	case a == Unlimited:
		return b
	case b == Unlimited:
		return a
	}
	if compareTimes(a, b) <= 0 {
		return a
	}
	return b
}
