// GPU utilization of a job's nodes, from a Prometheus-compatible metrics service.
//
// The service is asked for a range query over the job's lifetime.  The query is a template in which
// $NODES is replaced by a regular expression alternation of the node names; every sample of every
// series in the result counts equally toward the average.

package gpu

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/rug-cit-hpc/slurm-jobinfo/common"
)

const (
	DefaultQuery = `utilization_gpu{instance=~"($NODES)(:[0-9]+)?"}`
	DefaultStep  = 60 * time.Second

	nodesPlaceholder = "$NODES"
	requestTimeout   = 10 * time.Second
)

type Client struct {
	api   v1.API
	query string
	step  time.Duration
}

var ErrNoData = errors.New("No GPU data")

// A client for the service at baseURL, eg http://prometheus.example.com:9090.  An empty query or
// a zero step selects the defaults.
func NewClient(baseURL, query string, step time.Duration) (*Client, error) {
	if query == "" {
		query = DefaultQuery
	}
	if step <= 0 {
		step = DefaultStep
	}
	client, err := api.NewClient(api.Config{Address: strings.TrimSuffix(baseURL, "/")})
	if err != nil {
		return nil, fmt.Errorf("Bad metrics service address %q: %w", baseURL, err)
	}
	return &Client{
		api:   v1.NewAPI(client),
		query: query,
		step:  step,
	}, nil
}

// The query text for the nodes.
func (c *Client) Query(nodes []string) string {
	quoted := make([]string, len(nodes))
	for i, n := range nodes {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return strings.ReplaceAll(c.query, nodesPlaceholder, strings.Join(quoted, "|"))
}

// The average utilization in percent over all samples for the nodes in the time range.  Returns
// ErrNoData if the service has no samples.
func (c *Client) AverageUsage(ctx context.Context, nodes []string, start, end time.Time) (float64, error) {
	if len(nodes) == 0 || !end.After(start) {
		return -1, ErrNoData
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	result, warnings, err := c.api.QueryRange(ctx, c.Query(nodes), v1.Range{
		Start: start,
		End:   end,
		Step:  c.step,
	})
	if err != nil {
		return -1, fmt.Errorf("Metrics service failed: %w", err)
	}
	for _, w := range warnings {
		common.Log.Warningf("Metrics service: %s", w)
	}
	matrix, ok := result.(model.Matrix)
	if result == nil {
		return -1, ErrNoData
	}
	if !ok {
		return -1, fmt.Errorf("Metrics service returned %s, not a matrix", result.Type())
	}
	var sum float64
	var n int
	for _, series := range matrix {
		for _, sample := range series.Values {
			v := float64(sample.Value)
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
	}
	if n == 0 {
		return -1, ErrNoData
	}
	return sum / float64(n), nil
}
