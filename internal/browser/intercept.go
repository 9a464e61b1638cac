package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/copyleftdev/uiverify/internal/mock"
)

// InstallRoutes pauses requests that may match the table and answers them
// with the canned response, letting everything else through untouched.
// ctx must be a started chromedp context.
func InstallRoutes(ctx context.Context, table *mock.Table, logger *zap.Logger) error {
	if table == nil || table.Len() == 0 {
		return nil
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Fetch commands cannot be issued from the event goroutine.
		go handlePaused(ctx, table, paused, logger)
	})

	patterns := make([]*fetch.RequestPattern, 0, table.Len())
	for _, p := range table.CDPPatterns() {
		patterns = append(patterns, &fetch.RequestPattern{
			URLPattern:   p,
			RequestStage: fetch.RequestStageRequest,
		})
	}
	if err := chromedp.Run(ctx, fetch.Enable().WithPatterns(patterns)); err != nil {
		return fmt.Errorf("enable request interception: %w", err)
	}
	return nil
}

func handlePaused(ctx context.Context, table *mock.Table, ev *fetch.EventRequestPaused, logger *zap.Logger) {
	c := chromedp.FromContext(ctx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(ctx, c.Target)

	url := ev.Request.URL
	resp, ok := table.Match(url)
	if !ok {
		if err := fetch.ContinueRequest(ev.RequestID).Do(execCtx); err != nil && ctx.Err() == nil {
			logger.Warn("continue request failed", zap.String("url", url), zap.Error(err))
		}
		return
	}

	headers := make([]*fetch.HeaderEntry, 0, 4)
	for _, h := range resp.Headers() {
		headers = append(headers, &fetch.HeaderEntry{Name: h[0], Value: h[1]})
	}
	fulfill := fetch.FulfillRequest(ev.RequestID, int64(resp.Status)).WithResponseHeaders(headers)
	if body := resp.Base64Body(); body != "" {
		fulfill = fulfill.WithBody(body)
	}
	if err := fulfill.Do(execCtx); err != nil {
		if ctx.Err() == nil {
			logger.Warn("fulfill request failed", zap.String("url", url), zap.String("pattern", resp.Pattern), zap.Error(err))
		}
		return
	}
	logger.Debug("served mocked response",
		zap.String("url", url),
		zap.String("pattern", resp.Pattern),
		zap.Int("status", resp.Status),
	)
}
