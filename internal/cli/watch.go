package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch <room>",
		Short: "Spectate a room's public events",
		Long: `Connect to the room's SSE spectator stream and print events as they happen.

The first event is a state snapshot. Private events, such as the item sent
to the current performer, are never part of the stream. The stream ends
when the room closes.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, roomID string, jsonOutput bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.URL("/api/v1/rooms/"+url.PathEscape(roomID)+"/events"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	httpClient := &http.Client{
		Timeout: 0, // No timeout for SSE
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Code != "" {
			return fmt.Errorf("%s", errResp.Error.String())
		}
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !jsonOutput {
		_, _ = fmt.Fprintf(w, "Watching room %s\n", roomID)
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if currentEvent != "" {
				printEvent(w, currentEvent, strings.Join(dataLines, "\n"), jsonOutput)
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			if !jsonOutput {
				_, _ = fmt.Fprintln(w, "\nDisconnected")
			}
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		_, _ = fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		jsonData, _ := json.Marshal(SSEEvent{Time: now, Event: event, Data: data})
		_, _ = fmt.Fprintln(w, string(jsonData))
		return
	}

	_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", now.Format("2006-01-02 15:04:05"), event, summarize(data, 100))
}

// summarize flattens data to one line of at most limit bytes
func summarize(data string, limit int) string {
	data = strings.ReplaceAll(data, "\n", " ")
	if len(data) > limit {
		return data[:limit] + "..."
	}
	return data
}
