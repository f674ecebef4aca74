package pxgated

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"
)

const (
	healthTimeout  = 5 * time.Second
	healthRetryGap = 2 * time.Second
)

// CheckOnce probes the backend health URL once.
func CheckOnce(healthUrl string) error {
	cli := gentleman.New().URL(healthUrl)
	cli.Use(timeout.Request(healthTimeout))

	req := cli.Request()
	req.Method("HEAD")
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return fmt.Errorf("health probe status %d", resp.StatusCode)
	}
	return nil
}

// WaitUntilUp retries the probe until it passes or the attempts run out.
func WaitUntilUp(ctx context.Context, healthUrl string, retries int) error {
	var err error
	for i := 0; i <= retries; i++ {
		if err = CheckOnce(healthUrl); err == nil {
			return nil
		}
		log.Warn("backend not up yet", "attempt", i+1, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthRetryGap):
		}
	}
	return err
}
