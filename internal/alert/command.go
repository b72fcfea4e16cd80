package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Command actions accepted on coldwatch/command/alert/{id}.
const (
	ActionAcknowledge = "acknowledge"
	ActionResolve     = "resolve"
)

const commandTimeout = 10 * time.Second

// Command is the JSON payload of an alert command.
type Command struct {
	Action string `json:"action"`
	User   string `json:"user"`
	Notes  string `json:"notes,omitempty"`
}

// ParseCommand extracts the alert ID from the last topic segment and decodes
// the payload.
func ParseCommand(topic string, payload []byte) (string, Command, error) {
	var cmd Command

	idx := strings.LastIndex(topic, "/")
	id := topic[idx+1:]
	if id == "" || id == "+" || id == "#" {
		return "", cmd, fmt.Errorf("%w: no alert id in topic %q", ErrInvalidCommand, topic)
	}

	if err := json.Unmarshal(payload, &cmd); err != nil {
		return "", cmd, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	cmd.Action = strings.ToLower(strings.TrimSpace(cmd.Action))
	switch cmd.Action {
	case ActionAcknowledge, ActionResolve:
	default:
		return "", cmd, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
	if strings.TrimSpace(cmd.User) == "" {
		return "", cmd, fmt.Errorf("%w: user is required", ErrInvalidCommand)
	}
	return id, cmd, nil
}

// HandleCommand applies an alert command received over MQTT. Its signature
// matches mqtt.MessageHandler.
func (s *Service) HandleCommand(topic string, payload []byte) error {
	id, cmd, err := ParseCommand(topic, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Action {
	case ActionAcknowledge:
		_, err = s.Acknowledge(ctx, id, cmd.User)
	case ActionResolve:
		_, err = s.Resolve(ctx, id, cmd.User, cmd.Notes)
	}
	if err != nil {
		return fmt.Errorf("%s alert %s: %w", cmd.Action, id, err)
	}
	return nil
}
