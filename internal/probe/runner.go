// Package probe exercises every backend endpoint through the API client and
// reports per-endpoint status, latency and size.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/bizdash/internal/adapters/http/client"
	"github.com/okian/bizdash/internal/domain/model"
	"github.com/okian/bizdash/pkg/logger"
)

// Probe configuration constants.
const (
	DefaultWorkers  = 4
	listSample      = 5
	timeseriesLimit = 5
)

// call is one endpoint check waiting to run.
type call struct {
	name     string
	endpoint string
	skip     bool
	fn       func(ctx context.Context) error
}

// targets are the ids picked for detail calls.
type targets struct {
	device   string
	resultID int64
	alarmID  int64
	uris     []string
}

// Run probes every endpoint of the backend at config.BaseURL. List endpoints
// are called first and pick the device, result and alarm for detail calls
// unless the config names them. Returns ErrChecksFailed with the report when
// any call failed.
func Run(ctx context.Context, config *Config) (*Report, error) {
	log := logger.Get()
	log.Info(ctx, "starting api probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("device", config.Device),
		logger.Any("watch", config.Watch))

	c := newClient(config)
	report := &Report{StartTime: time.Now()}

	t := targets{device: config.Device, resultID: config.ResultID, alarmID: config.AlarmID}
	report.Checks = append(report.Checks, runCalls(ctx, config.Workers, listCalls(c, &t))...)
	report.Checks = append(report.Checks, runCalls(ctx, config.Workers, detailCalls(c, t))...)
	report.Duration = time.Since(report.StartTime)

	displayReport(ctx, report)

	if config.Watch {
		if err := Watch(ctx, c, t.device, config.Verbose); err != nil {
			return report, err
		}
	}
	if report.Failed() > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrChecksFailed, report.Failed(), len(report.Checks))
	}
	return report, nil
}

func newClient(config *Config) *client.Client {
	return client.New(
		client.WithBaseURL(config.BaseURL),
		client.WithTimeout(config.Timeout),
		client.WithHTTPClient(&http.Client{Transport: meteredTransport{next: http.DefaultTransport}}),
		client.WithLogger(logger.Named("client")),
	)
}

// listCalls returns the discovery calls. Each call records its pick into t;
// every field is written by one call only.
func listCalls(c *client.Client, t *targets) []call {
	return []call{
		{name: "stats", endpoint: client.EndpointStats, fn: func(ctx context.Context) error {
			_, err := c.Stats(ctx)
			return err
		}},
		{name: "results", endpoint: client.EndpointResults, fn: func(ctx context.Context) error {
			page, err := c.Results(ctx, model.PageParams(1, listSample))
			if err == nil && t.resultID == 0 && len(page.Items) > 0 {
				t.resultID = page.Items[0].ID
			}
			return err
		}},
		{name: "alarms", endpoint: client.EndpointAlarms, fn: func(ctx context.Context) error {
			page, err := c.Alarms(ctx, model.LimitParams(listSample))
			if err == nil && t.alarmID == 0 && len(page.Items) > 0 {
				t.alarmID = page.Items[0].ID
			}
			return err
		}},
		{name: "devices", endpoint: client.EndpointDevices, fn: func(ctx context.Context) error {
			list, err := c.Devices(ctx, nil)
			if err == nil && t.device == "" && len(list.Items) > 0 {
				t.device = list.Items[0].DeviceName
			}
			return err
		}},
		{name: "structure tree", endpoint: client.EndpointStructureTree, fn: func(ctx context.Context) error {
			_, err := c.StructureTree(ctx)
			return err
		}},
		{name: "points", endpoint: client.EndpointPoints, fn: func(ctx context.Context) error {
			points, err := c.Points(ctx, nil)
			for _, p := range points {
				if len(t.uris) == timeseriesLimit {
					break
				}
				if p.PointURI != "" {
					t.uris = append(t.uris, p.PointURI)
				}
			}
			return err
		}},
	}
}

// detailCalls returns the calls that need a picked target. Calls without a
// target are skipped.
func detailCalls(c *client.Client, t targets) []call {
	noResult, noAlarm, noDevice := t.resultID == 0, t.alarmID == 0, t.device == ""
	latest := model.LimitParams(listSample)
	return []call{
		{name: "result detail", endpoint: client.EndpointResultDetail, skip: noResult, fn: func(ctx context.Context) error {
			_, err := c.ResultDetail(ctx, t.resultID)
			return err
		}},
		{name: "result steps", endpoint: client.EndpointResultSteps, skip: noResult, fn: func(ctx context.Context) error {
			_, err := c.ResultSteps(ctx, t.resultID)
			return err
		}},
		{name: "result curves", endpoint: client.EndpointResultCurves, skip: noResult, fn: func(ctx context.Context) error {
			_, err := c.ResultCurves(ctx, t.resultID)
			return err
		}},
		{name: "alarm hierarchy", endpoint: client.EndpointAlarmHierarchy, skip: noAlarm, fn: func(ctx context.Context) error {
			_, err := c.AlarmHierarchy(ctx, t.alarmID)
			return err
		}},
		{name: "device detail", endpoint: client.EndpointDeviceDetail, skip: noDevice, fn: func(ctx context.Context) error {
			_, err := c.DeviceDetail(ctx, t.device)
			return err
		}},
		{name: "device results", endpoint: client.EndpointDeviceResults, skip: noDevice, fn: func(ctx context.Context) error {
			_, err := c.DeviceResults(ctx, t.device, latest)
			return err
		}},
		{name: "device alarms", endpoint: client.EndpointDeviceAlarms, skip: noDevice, fn: func(ctx context.Context) error {
			_, err := c.DeviceAlarms(ctx, t.device, latest)
			return err
		}},
		{name: "device uris", endpoint: client.EndpointDeviceURIs, skip: noDevice, fn: func(ctx context.Context) error {
			_, err := c.DeviceURIs(ctx, t.device)
			return err
		}},
		{name: "device uri values", endpoint: client.EndpointDeviceURICurrent, skip: noDevice, fn: func(ctx context.Context) error {
			_, err := c.DeviceURICurrent(ctx, t.device)
			return err
		}},
		{name: "timeseries", endpoint: client.EndpointTimeseries, skip: len(t.uris) == 0, fn: func(ctx context.Context) error {
			_, err := c.Timeseries(ctx, t.uris)
			return err
		}},
	}
}

// runCalls runs calls with at most workers in flight and returns their
// checks in call order. A failed call does not stop the others.
func runCalls(ctx context.Context, workers int, calls []call) []Check {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	checks := make([]Check, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cl := range calls {
		checks[i] = Check{Name: cl.name, Endpoint: cl.endpoint, Skipped: cl.skip}
		if cl.skip {
			continue
		}
		i, cl := i, cl
		g.Go(func() error {
			m := &meter{}
			start := time.Now()
			err := cl.fn(withMeter(gctx, m))
			checks[i].Latency = time.Since(start)
			checks[i].Status = int(m.status.Load())
			checks[i].Bytes = m.bytes.Load()
			checks[i].Err = err
			var se *client.StatusError
			if errors.As(err, &se) {
				checks[i].Status = se.Code
			}
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

// displayReport logs one line per check and the summary.
func displayReport(ctx context.Context, report *Report) {
	log := logger.Get()
	for _, c := range report.Checks {
		fields := []logger.Field{
			logger.String("check", c.Name),
			logger.String("endpoint", c.Endpoint),
		}
		switch {
		case c.Skipped:
			log.Warn(ctx, "skipped: no target", fields...)
			continue
		case c.Err != nil:
			fields = append(fields, logger.Int("status", c.Status), logger.Error(c.Err))
			log.Error(ctx, "check failed", fields...)
		default:
			fields = append(fields,
				logger.Int("status", c.Status),
				logger.String("latency", c.Latency.Round(time.Microsecond).String()),
				logger.Any("bytes", c.Bytes))
			log.Info(ctx, "check ok", fields...)
		}
	}
	log.Info(ctx, "probe summary",
		logger.Int("checks", len(report.Checks)),
		logger.Int("failed", report.Failed()),
		logger.Int("skipped", report.Skipped()),
		logger.String("duration", report.Duration.String()))
}
