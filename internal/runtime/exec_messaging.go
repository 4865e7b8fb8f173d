package runtime

import (
	"strconv"
	"strings"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/orderparse"
)

func execMessage(x *execution) Result {
	cfg := x.node.Config.(*domain.MessageConfig)
	x.say(cfg.Text)
	return next("")
}

func execQuestion(x *execution) Result {
	cfg := x.node.Config.(*domain.QuestionConfig)
	if !x.resuming {
		x.say(cfg.Text)
		return halt()
	}
	if x.input == nil {
		return halt()
	}
	answer := x.text()
	if answer == "" {
		x.say(cfg.Text)
		return halt()
	}
	if cfg.Variable == "" {
		x.warn(domain.WarnMissingVariable, "question answer discarded: no variable")
	}
	x.vars.Set(cfg.Variable, answer)
	return next("")
}

func execPoll(x *execution) Result {
	cfg := x.node.Config.(*domain.PollConfig)
	if !x.resuming {
		x.say(pollPrompt(cfg))
		return halt()
	}
	if x.input == nil {
		return halt()
	}
	i, ok := MatchOption(x.text(), cfg.Options)
	if !ok {
		retry := cfg.RetryText
		if retry == "" {
			retry = x.it.texts.PollRetry
		}
		x.say(retry)
		x.say(pollPrompt(cfg))
		return halt()
	}
	x.vars.Set(cfg.Variable, cfg.Options[i])
	return next(strconv.Itoa(i))
}

func pollPrompt(cfg *domain.PollConfig) string {
	var b strings.Builder
	b.WriteString(cfg.Question)
	for i, opt := range cfg.Options {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(opt)
	}
	return b.String()
}

// MatchOption resolves a poll answer to a zero-based option index.
// Precedence: exact label (case and accent insensitive), then 1-based index,
// then label containing the answer; among several containing labels the
// shortest wins, ties by declaration order.
func MatchOption(answer string, options []string) (int, bool) {
	a := orderparse.Fold(strings.TrimSpace(answer))
	if a == "" {
		return 0, false
	}
	for i, opt := range options {
		if orderparse.Fold(strings.TrimSpace(opt)) == a {
			return i, true
		}
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(a, ".")); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}
	best := -1
	for i, opt := range options {
		label := orderparse.Fold(opt)
		if !strings.Contains(label, a) {
			continue
		}
		if best < 0 || len(label) < len(orderparse.Fold(options[best])) {
			best = i
		}
	}
	return best, best >= 0
}

func execMediaRequest(x *execution) Result {
	cfg := x.node.Config.(*domain.MediaRequestConfig)
	if !x.resuming {
		x.say(cfg.Prompt)
		return halt()
	}
	if x.input == nil {
		return halt()
	}
	if x.input.MediaURL == "" {
		retry := cfg.RetryText
		if retry == "" {
			retry = x.it.texts.MediaRetry
		}
		x.say(retry)
		return halt()
	}
	x.vars.Set(cfg.Variable, x.input.MediaURL)
	return next("")
}
