package overpass

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/serjvanilla/go-overpass"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/observability"
)

// querier is the part of the Overpass client used here.
type querier interface {
	Query(query string) (overpass.Result, error)
}

// Client implements domain.LocationLookup against an Overpass API endpoint.
type Client struct {
	api     querier
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an Overpass lookup client.
func NewClient(endpoint string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	api := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &Client{
		api:     &api,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// FindPoints returns nodes and ways carrying every tag, with ways reduced to
// the mean of their node positions. Each OSM element appears once.
func (c *Client) FindPoints(ctx context.Context, tags map[string]string, bbox domain.BBox) ([]domain.AmenityPoint, error) {
	if len(tags) == 0 {
		return nil, &domain.ParameterError{Name: "tags", Value: tags, Reason: "at least one tag is required"}
	}
	query := buildQuery(tags, bbox, c.timeout)

	start := time.Now()
	result, err := c.executeQuery(ctx, query)
	c.metrics.LookupAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	points := convertToPoints(result, tags)
	if len(points) == 0 {
		c.metrics.LookupRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.LookupRequests.WithLabelValues("success").Inc()
	}
	c.logger.Debug("overpass lookup complete", "tags", tagFilter(tags), "points", len(points))
	return points, nil
}

func (c *Client) executeQuery(ctx context.Context, query string) (overpass.Result, error) {
	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := c.api.Query(query)
		done <- outcome{r, err}
	}()

	select {
	case <-ctx.Done():
		return overpass.Result{}, fmt.Errorf("overpass query: %w", ctx.Err())
	case o := <-done:
		if o.err != nil {
			return overpass.Result{}, fmt.Errorf("overpass query failed: %w", o.err)
		}
		return o.result, nil
	}
}

// buildQuery selects nodes and ways matching all tags inside bbox, then
// recurses down to way nodes so way positions can be resolved.
func buildQuery(tags map[string]string, bbox domain.BBox, timeout time.Duration) string {
	filter := tagFilter(tags)
	box := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
	return fmt.Sprintf(`[out:json][timeout:%d];
(
	node%s(%s);
	way%s(%s);
);
out body;
>;
out skel qt;`, int(timeout.Seconds()), filter, box, filter, box)
}

// tagFilter renders tags as Overpass filters in key order.
func tagFilter(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "[%q=%q]", k, tags[k])
	}
	return b.String()
}

func convertToPoints(result overpass.Result, tags map[string]string) []domain.AmenityPoint {
	category := tagFilter(tags)
	var points []domain.AmenityPoint

	nodeIDs := make([]int64, 0, len(result.Nodes))
	for id := range result.Nodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })
	for _, id := range nodeIDs {
		n := result.Nodes[id]
		// Way member nodes come back untagged and are not amenities.
		if !hasTags(n.Tags, tags) {
			continue
		}
		points = append(points, domain.AmenityPoint{
			Name:     n.Tags["name"],
			Category: category,
			Lat:      n.Lat,
			Lon:      n.Lon,
		})
	}

	wayIDs := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		wayIDs = append(wayIDs, id)
	}
	sort.Slice(wayIDs, func(i, j int) bool { return wayIDs[i] < wayIDs[j] })
	for _, id := range wayIDs {
		w := result.Ways[id]
		if !hasTags(w.Tags, tags) {
			continue
		}
		lat, lon, ok := wayPosition(w.Nodes)
		if !ok {
			continue
		}
		points = append(points, domain.AmenityPoint{
			Name:     w.Tags["name"],
			Category: category,
			Lat:      lat,
			Lon:      lon,
		})
	}
	return points
}

// wayPosition returns the area centroid of a closed way and the mean of the
// distinct nodes otherwise. The closing node of a ring is not counted twice.
func wayPosition(nodes []*overpass.Node) (lat, lon float64, ok bool) {
	path := make([]geom.Point, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		path = append(path, geom.Point{X: n.Lon, Y: n.Lat})
	}
	if len(path) == 0 {
		return 0, 0, false
	}
	closed := len(path) > 1 && path[0] == path[len(path)-1]
	if closed && len(path) >= 4 {
		ring := geom.Polygon{path}
		if ring.Area() > 0 {
			c := ring.Centroid()
			return c.Y, c.X, true
		}
	}
	if closed {
		path = path[:len(path)-1]
	}
	for _, p := range path {
		lat += p.Y
		lon += p.X
	}
	return lat / float64(len(path)), lon / float64(len(path)), true
}

func hasTags(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
