package views

import (
	"context"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"

	"github.com/okian/bizdash/internal/domain/model"
)

type trendPoint struct {
	Date  string
	Count int64
}

type dashboardData struct {
	Stats  *model.Stats
	OKRate float64
	Trend  []trendPoint
	Alarms []model.Alarm
}

func (v *Views) dashboard(ctx context.Context, _ *http.Request, _ httprouter.Params) (*page, error) {
	var (
		stats  *model.Stats
		alarms *model.Page[model.Alarm]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = v.api.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		alarms, err = v.api.Alarms(gctx, model.LimitParams(latestLimit))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := dashboardData{Stats: stats, Alarms: alarms.Items}
	if stats.TotalCount > 0 {
		data.OKRate = float64(stats.OKCount) * 100 / float64(stats.TotalCount)
	}
	for i, d := range stats.Trend.Dates {
		tp := trendPoint{Date: d}
		if i < len(stats.Trend.Counts) {
			tp.Count = stats.Trend.Counts[i]
		}
		data.Trend = append(data.Trend, tp)
	}
	return &page{Data: data}, nil
}

func (v *Views) devices(ctx context.Context, r *http.Request, _ httprouter.Params) (*page, error) {
	list, err := v.api.Devices(ctx, r.URL.Query())
	if err != nil {
		return nil, err
	}
	return &page{Data: list}, nil
}

type deviceData struct {
	Detail  *model.DeviceDetail
	Results *model.Page[model.Result]
	Alarms  *model.Page[model.Alarm]
	URIs    *model.DeviceURIList
}

func (v *Views) deviceDetail(ctx context.Context, _ *http.Request, ps httprouter.Params) (*page, error) {
	name := ps.ByName("name")
	var data deviceData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Detail, err = v.api.DeviceDetail(gctx, name)
		return err
	})
	g.Go(func() (err error) {
		data.Results, err = v.api.DeviceResults(gctx, name, model.LimitParams(latestLimit))
		return err
	})
	g.Go(func() (err error) {
		data.Alarms, err = v.api.DeviceAlarms(gctx, name, model.LimitParams(latestLimit))
		return err
	})
	g.Go(func() (err error) {
		data.URIs, err = v.api.DeviceURIs(gctx, name)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &page{Title: name, Data: data}, nil
}

func (v *Views) results(ctx context.Context, r *http.Request, _ httprouter.Params) (*page, error) {
	q := r.URL.Query()
	params := v.listParams(q, "page", "page_size", "craft_type", "status", "structure_id")
	res, err := v.api.Results(ctx, params)
	if err != nil {
		return nil, err
	}
	return &page{
		Query: q,
		Data:  res,
		Pager: newPager("/results", params, res.Page, res.PageSize, res.Total),
	}, nil
}

type resultData struct {
	Detail        *model.ResultDetail
	Steps         []model.Step
	Curves        []model.Curve
	CurvesPerStep map[string]int
}

func (v *Views) resultDetail(ctx context.Context, _ *http.Request, ps httprouter.Params) (*page, error) {
	id, ok := parseID(ps.ByName("id"))
	if !ok {
		return nil, nil
	}
	var data resultData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Detail, err = v.api.ResultDetail(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		data.Steps, err = v.api.ResultSteps(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		data.Curves, err = v.api.ResultCurves(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !data.Detail.Found() {
		return nil, nil
	}
	data.CurvesPerStep = make(map[string]int, len(data.Steps))
	for _, c := range data.Curves {
		data.CurvesPerStep[c.Step.String()]++
	}
	return &page{Title: "Result " + strconv.FormatInt(id, 10), Data: data}, nil
}

type alarmData struct {
	Page      *model.Page[model.Alarm]
	Hierarchy []model.AlarmNode
}

func (v *Views) alarms(ctx context.Context, r *http.Request, _ httprouter.Params) (*page, error) {
	q := r.URL.Query()
	params := v.listParams(q, "page", "page_size", "result_id", "structure_id")
	var data alarmData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Page, err = v.api.Alarms(gctx, params)
		return err
	})
	if id, ok := parseID(q.Get("hierarchy")); ok {
		g.Go(func() (err error) {
			data.Hierarchy, err = v.api.AlarmHierarchy(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &page{
		Query: q,
		Data:  data,
		Pager: newPager("/alarms", params, data.Page.Page, data.Page.PageSize, data.Page.Total),
	}, nil
}
