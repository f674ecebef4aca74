package sdk

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/h2non/gentleman.v2"

	"github.com/moonpixels/pxgated/schema"
)

// PxCli is a Go client of the gateway HTTP API.
type PxCli struct {
	SCli *gentleman.Client
}

func New(gatewayUrl string) *PxCli {
	return &PxCli{
		SCli: gentleman.New().URL(gatewayUrl),
	}
}

type CellInfo struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Color   string `json:"color"`
	Owner   string `json:"owner"`
	Minted  bool   `json:"minted"`
	Pending bool   `json:"pending"`
}

func (p *PxCli) GetCell(x, y int) (CellInfo, error) {
	req := p.SCli.Get()
	req.AddPath(fmt.Sprintf("/cell/%d/%d", x, y))
	resp, err := req.Send()
	if err != nil {
		return CellInfo{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return CellInfo{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	info := CellInfo{}
	err = resp.JSON(&info)
	return info, err
}

func (p *PxCli) GetViewport() (schema.ViewportResp, error) {
	req := p.SCli.Get()
	req.AddPath("/viewport")
	resp, err := req.Send()
	if err != nil {
		return schema.ViewportResp{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.ViewportResp{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	vp := schema.ViewportResp{}
	err = resp.JSON(&vp)
	return vp, err
}

func (p *PxCli) GoTo(x, y int) (schema.ViewportResp, error) {
	return p.postViewport("/viewport/goto", schema.CellReq{X: x, Y: y})
}

func (p *PxCli) Pan(deltaX, deltaY int) (schema.ViewportResp, error) {
	return p.postViewport("/viewport/pan", map[string]int{"deltaX": deltaX, "deltaY": deltaY})
}

func (p *PxCli) ZoomIn() (schema.ViewportResp, error) {
	return p.postViewport("/viewport/zoom-in", struct{}{})
}

func (p *PxCli) ZoomOut() (schema.ViewportResp, error) {
	return p.postViewport("/viewport/zoom-out", struct{}{})
}

func (p *PxCli) postViewport(path string, payload interface{}) (schema.ViewportResp, error) {
	req := p.SCli.Post()
	req.AddPath(path)
	req.JSON(payload)
	resp, err := req.Send()
	if err != nil {
		return schema.ViewportResp{}, err
	}
	defer resp.Close()
	if !resp.Ok {
		return schema.ViewportResp{}, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	vp := schema.ViewportResp{}
	err = resp.JSON(&vp)
	return vp, err
}

func (p *PxCli) MintPixel(x, y int, color string) (string, error) {
	return p.postTx("/pixel/mint", schema.CellReq{X: x, Y: y, Color: color})
}

func (p *PxCli) UpdatePixel(x, y int, color string) (string, error) {
	return p.postTx("/pixel/update", schema.CellReq{X: x, Y: y, Color: color})
}

func (p *PxCli) BatchMint(cells []schema.CellReq) (string, error) {
	return p.postTx("/pixel/batch-mint", schema.BatchReq{Cells: cells})
}

func (p *PxCli) BatchUpdate(cells []schema.CellReq) (string, error) {
	return p.postTx("/pixel/batch-update", schema.BatchReq{Cells: cells})
}

func (p *PxCli) ComposeArea(x0, y0, x1, y1 int) (string, error) {
	return p.postTx("/compose", schema.ComposeReq{X0: x0, Y0: y0, X1: x1, Y1: y1})
}

func (p *PxCli) DelegatePixel(x, y int, operator string) (string, error) {
	return p.postTx("/delegate", schema.DelegateReq{X: x, Y: y, Operator: operator})
}

func (p *PxCli) RevokeDelegation(x, y int, operator string) (string, error) {
	return p.postTx("/revoke", schema.DelegateReq{X: x, Y: y, Operator: operator})
}

func (p *PxCli) postTx(path string, payload interface{}) (string, error) {
	req := p.SCli.Post()
	req.AddPath(path)
	req.JSON(payload)
	resp, err := req.Send()
	if err != nil {
		return "", err
	}
	defer resp.Close()
	if !resp.Ok {
		respErr := schema.RespErr{}
		if err := resp.JSON(&respErr); err == nil && respErr.Err != "" {
			return "", respErr
		}
		return "", errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	res := schema.RespTx{}
	if err := resp.JSON(&res); err != nil {
		return "", err
	}
	return res.TxHash, nil
}

func (p *PxCli) Notifications() ([]schema.Notification, error) {
	req := p.SCli.Get()
	req.AddPath("/notifications")
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	list := make([]schema.Notification, 0)
	err = resp.JSON(&list)
	return list, err
}

func (p *PxCli) OpHistory(sender string, limit int) ([]schema.OpRecord, error) {
	req := p.SCli.Get()
	req.AddPath("/ops")
	if sender != "" {
		req.SetQuery("sender", sender)
	}
	if limit > 0 {
		req.SetQuery("limit", strconv.Itoa(limit))
	}
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	recs := make([]schema.OpRecord, 0)
	err = resp.JSON(&recs)
	return recs, err
}
