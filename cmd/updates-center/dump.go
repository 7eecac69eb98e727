package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vitrix/updates-center/internal/center"
	"github.com/vitrix/updates-center/internal/model"
)

type feedDump struct {
	Viewer        string               `json:"viewer"`
	Unread        int                  `json:"unread"`
	FailedSources []string             `json:"failed_sources,omitempty"`
	Notifications []model.Notification `json:"notifications"`
}

// dumpJSON aggregates once and writes the feed to w.
func dumpJSON(ctx context.Context, c *center.Center, w io.Writer) error {
	if _, err := c.Load(ctx); err != nil {
		return err
	}

	out := feedDump{
		Viewer:        c.Viewer().Email,
		Unread:        c.Unread(),
		FailedSources: c.FailedSources(),
		Notifications: c.Feed(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}
	return nil
}
