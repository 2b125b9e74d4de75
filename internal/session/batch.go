package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/schmitthub/testdb/internal/iostreams"
)

// Outcome is the disposition of one command in a batch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeCommandError
	OutcomeNoResponse
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCommandError:
		return "command error"
	case OutcomeNoResponse:
		return "no response"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Disposition records what happened to one submitted command.
type Disposition struct {
	Command string
	Outcome Outcome
	Detail  string
	// Err is a *CommandError or *NoResponseError for failed commands.
	Err error
}

// Expectation is the pattern set every command of a batch is matched against.
type Expectation struct {
	// Ready is the prompt printed once a command finished.
	Ready string
	// Error is the marker the interpreter prints for a failed command.
	Error string
	// Timeout bounds each wait.
	Timeout time.Duration
}

// RunBatch submits every command in order and classifies each response.
// No failure stops the batch: the result has exactly one disposition per
// command. Failures are logged at warn level; successes only at debug.
func RunBatch(s *Session, commands []string, exp Expectation, log iostreams.Logger) []Disposition {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	out := make([]Disposition, 0, len(commands))
	for _, cmd := range commands {
		if stale := strings.TrimSpace(s.Discard()); stale != "" {
			log.Warn().Str("command", cmd).Str("output", stale).Msg("discarding unread output before command")
		}
		d := runOne(s, cmd, exp)
		switch d.Outcome {
		case OutcomeSuccess:
			log.Debug().Str("command", cmd).Msg("command succeeded")
		default:
			log.Warn().Str("command", cmd).Str("outcome", d.Outcome.String()).Str("detail", d.Detail).Msg("command failed")
		}
		out = append(out, d)
	}
	return out
}

func runOne(s *Session, cmd string, exp Expectation) Disposition {
	if err := s.Submit(cmd); err != nil {
		return noResponse(cmd, err.Error())
	}

	res, err := s.AwaitResponse([]string{exp.Ready, exp.Error}, exp.Timeout)
	if err != nil {
		return noResponse(cmd, err.Error())
	}

	switch {
	case res.Matched(0):
		return Disposition{Command: cmd, Outcome: OutcomeSuccess, Detail: strings.TrimSpace(res.Detail)}
	case res.Matched(1):
		detail := strings.TrimSpace(exp.Error + resync(s, exp))
		return Disposition{
			Command: cmd,
			Outcome: OutcomeCommandError,
			Detail:  detail,
			Err:     &CommandError{Command: cmd, Detail: detail},
		}
	case res.Kind == ResultTimeout:
		reason := fmt.Sprintf("timed out after %s", exp.Timeout)
		if late, ok := awaitLate(s, exp); ok {
			reason += "; late response: " + late
		}
		return noResponse(cmd, reason)
	default:
		return noResponse(cmd, "end of stream")
	}
}

// resync reads past the rest of an error message up to the next ready prompt
// so the following command starts from a clean buffer. It returns the text
// in between, or whatever arrived if the prompt never shows.
func resync(s *Session, exp Expectation) string {
	res, err := s.AwaitResponse([]string{exp.Ready}, exp.Timeout)
	if err != nil {
		return ""
	}
	return res.Detail
}

// awaitLate gives a timed-out command one more timeout window to print the
// ready prompt, so a slow response is consumed here instead of being read as
// the next command's answer. Output later than that is dropped by Discard
// before the next Submit; a response slower than both still desyncs the batch.
func awaitLate(s *Session, exp Expectation) (string, bool) {
	res, err := s.AwaitResponse([]string{exp.Ready}, exp.Timeout)
	if err != nil || res.Kind != ResultMatch {
		return "", false
	}
	return strings.TrimSpace(res.Detail), true
}

func noResponse(cmd, reason string) Disposition {
	return Disposition{
		Command: cmd,
		Outcome: OutcomeNoResponse,
		Detail:  reason,
		Err:     &NoResponseError{Command: cmd, Reason: reason},
	}
}
