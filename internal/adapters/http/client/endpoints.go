package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/okian/bizdash/internal/domain/model"
)

// Endpoint templates, used as metric and log labels.
const (
	EndpointStats            = "/stats"
	EndpointResults          = "/results"
	EndpointResultDetail     = "/results/{id}"
	EndpointResultCurves     = "/results/{id}/curves"
	EndpointResultSteps      = "/results/{id}/steps"
	EndpointAlarms           = "/alarms"
	EndpointAlarmHierarchy   = "/alarms/{id}/hierarchy"
	EndpointDevices          = "/devices"
	EndpointDeviceDetail     = "/devices/{name}"
	EndpointDeviceResults    = "/devices/{name}/results"
	EndpointDeviceAlarms     = "/devices/{name}/alarms"
	EndpointDeviceURIs       = "/devices/{name}/uris"
	EndpointDeviceURICurrent = "/devices/{name}/uris/current"
	EndpointStructureTree    = "/structure/tree"
	EndpointPoints           = "/points"
	EndpointTimeseries       = "/proxy/timeseries"
	EndpointDeviceStream     = "/ws/device/{name}"
)

func resultPath(id int64) string { return "/results/" + strconv.FormatInt(id, 10) }

func devicePath(name string) string { return "/devices/" + url.PathEscape(name) }

// Stats returns the dashboard summary.
func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var out model.Stats
	if err := c.getJSON(ctx, EndpointStats, EndpointStats, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results lists results. params are forwarded as the query string.
func (c *Client) Results(ctx context.Context, params url.Values) (*model.Page[model.Result], error) {
	var out model.Page[model.Result]
	if err := c.getJSON(ctx, EndpointResults, EndpointResults, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResultDetail returns one result. An unknown id yields a detail whose
// Found reports false.
func (c *Client) ResultDetail(ctx context.Context, id int64) (*model.ResultDetail, error) {
	var out model.ResultDetail
	if err := c.getJSON(ctx, EndpointResultDetail, resultPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResultCurves returns the curves recorded for a result.
func (c *Client) ResultCurves(ctx context.Context, id int64) ([]model.Curve, error) {
	var out []model.Curve
	if err := c.getJSON(ctx, EndpointResultCurves, resultPath(id)+"/curves", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResultSteps returns the steps of a result.
func (c *Client) ResultSteps(ctx context.Context, id int64) ([]model.Step, error) {
	var out []model.Step
	if err := c.getJSON(ctx, EndpointResultSteps, resultPath(id)+"/steps", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Alarms lists alarms. params are forwarded as the query string.
func (c *Client) Alarms(ctx context.Context, params url.Values) (*model.Page[model.Alarm], error) {
	var out model.Page[model.Alarm]
	if err := c.getJSON(ctx, EndpointAlarms, EndpointAlarms, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AlarmHierarchy returns the ancestor and descendant chain of an alarm.
func (c *Client) AlarmHierarchy(ctx context.Context, id int64) ([]model.AlarmNode, error) {
	var out []model.AlarmNode
	path := "/alarms/" + strconv.FormatInt(id, 10) + "/hierarchy"
	if err := c.getJSON(ctx, EndpointAlarmHierarchy, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Devices lists devices with their counters.
func (c *Client) Devices(ctx context.Context, params url.Values) (*model.DeviceList, error) {
	var out model.DeviceList
	if err := c.getJSON(ctx, EndpointDevices, EndpointDevices, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceDetail returns the summary of one device.
func (c *Client) DeviceDetail(ctx context.Context, name string) (*model.DeviceDetail, error) {
	var out model.DeviceDetail
	if err := c.getJSON(ctx, EndpointDeviceDetail, devicePath(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceResults lists results of one device.
func (c *Client) DeviceResults(ctx context.Context, name string, params url.Values) (*model.Page[model.Result], error) {
	var out model.Page[model.Result]
	if err := c.getJSON(ctx, EndpointDeviceResults, devicePath(name)+"/results", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceAlarms lists alarms of one device.
func (c *Client) DeviceAlarms(ctx context.Context, name string, params url.Values) (*model.Page[model.Alarm], error) {
	var out model.Page[model.Alarm]
	if err := c.getJSON(ctx, EndpointDeviceAlarms, devicePath(name)+"/alarms", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceURIs lists the monitored URIs of one device.
func (c *Client) DeviceURIs(ctx context.Context, name string) (*model.DeviceURIList, error) {
	var out model.DeviceURIList
	if err := c.getJSON(ctx, EndpointDeviceURIs, devicePath(name)+"/uris", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceURICurrent fetches the current values of a device's URIs.
func (c *Client) DeviceURICurrent(ctx context.Context, name string) (*model.URIValueList, error) {
	var out model.URIValueList
	if err := c.postJSON(ctx, EndpointDeviceURICurrent, devicePath(name)+"/uris/current", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StructureTree returns the plant hierarchy roots.
func (c *Client) StructureTree(ctx context.Context) ([]model.StructureNode, error) {
	var out []model.StructureNode
	if err := c.getJSON(ctx, EndpointStructureTree, EndpointStructureTree, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Points lists PLC data points.
func (c *Client) Points(ctx context.Context, params url.Values) ([]model.Point, error) {
	var out []model.Point
	if err := c.getJSON(ctx, EndpointPoints, EndpointPoints, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Timeseries asks the backend proxy for the latest values of uris and
// returns the platform's answer unchanged.
func (c *Client) Timeseries(ctx context.Context, uris []string) (json.RawMessage, error) {
	if uris == nil {
		uris = []string{}
	}
	body, err := c.post(ctx, EndpointTimeseries, EndpointTimeseries, uris)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
