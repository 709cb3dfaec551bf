package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// Inbound is a client action on the wire
type Inbound struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"room_id"`
	Identity string          `json:"identity"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Envelope is a server message on the wire
type Envelope struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// textPayloads maps actions whose free text becomes a single payload field
var textPayloads = map[string]string{
	"create_room":   "game_type",
	"join_room":     "avatar",
	"guess":         "text",
	"correct_guess": "guesser",
	"submit_answer": "answer",
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <room> <identity>",
		Short: "Play interactively over WebSocket",
		Long: `Open a game connection and send one action per line of input.

Each line is an action type followed by an optional payload, either as JSON
or as free text for simple actions:

  create_room charades
  join_room
  start_game
  ready
  guess the godfather
  correct_guess Bob
  submit_answer Paris
  submit_words {"answers":{"animal":"ant","food":"apple"}}
  stop_bus

Server events are printed as they arrive. End input or press Ctrl+D to quit.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], args[1])
		},
	}

	return cmd
}

func play(in io.Reader, out io.Writer, roomID, identity string) error {
	conn, resp, err := websocket.DefaultDialer.Dial(client.WebSocketURL("/ws"), nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		_, _ = fmt.Fprintf(out, format, args...)
	}

	done := make(chan struct{})
	received := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			select {
			case received <- struct{}{}:
			default:
			}
			if cfg.Output == "json" {
				data, _ := json.Marshal(env)
				printf("%s\n", data)
				continue
			}
			printf("<- %s %s\n", env.Type, summarize(string(env.Payload), 200))
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		msg, err := parseLine(scanner.Text(), roomID, identity)
		if errors.Is(err, errEmptyLine) {
			continue
		}
		if err != nil {
			printf("!! %s\n", err)
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	// Actions are handled asynchronously; wait until the replies go quiet
	settle := time.NewTimer(replyWait)
	defer settle.Stop()
wait:
	for {
		select {
		case <-received:
			settle.Reset(replyWait)
		case <-settle.C:
			break wait
		case <-done:
			return nil
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

// replyWait is how long play lingers after input ends without a new event
const replyWait = 500 * time.Millisecond

var errEmptyLine = errors.New("empty line")

// parseLine turns "action [payload]" into an inbound message
func parseLine(line, roomID, identity string) (Inbound, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Inbound{}, errEmptyLine
	}

	action, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	msg := Inbound{Type: action, RoomID: roomID, Identity: identity}

	switch {
	case rest == "":
	case strings.HasPrefix(rest, "{"):
		if !json.Valid([]byte(rest)) {
			return Inbound{}, fmt.Errorf("invalid JSON payload for %s", action)
		}
		msg.Payload = json.RawMessage(rest)
	default:
		field, ok := textPayloads[action]
		if !ok {
			return Inbound{}, fmt.Errorf("%s takes a JSON payload", action)
		}
		data, _ := json.Marshal(map[string]string{field: rest})
		msg.Payload = data
	}
	return msg, nil
}
