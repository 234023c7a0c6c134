package control

import (
	"encoding/json"
	"strings"

	"github.com/golang/glog"
	"github.com/google/shlex"

	"tinygo.org/x/g2go/report"
)

// isConfigLine reports whether a line is a '$'-prefixed config/debug
// command rather than G-code.
func isConfigLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "$")
}

// handleConfigLine services the '$' command surface, tokenized with
// shlex so a value can carry quoted JSON or spaces:
//
//	$$                       dump the whole registry as JSON
//	$key                     read one key
//	$key value               set one key
//	$json '{"k":v, ...}'     batch-set from a JSON object
func (l *Loop) handleConfigLine(line string) {
	trimmed := strings.TrimSpace(line)[1:]
	if trimmed == "$" || trimmed == "" {
		l.dumpConfig()
		return
	}

	tokens, err := shlex.Split(trimmed)
	if err != nil {
		l.Lines.WriteLine(`{"er":{"msg":"malformed $ line"}}`)
		return
	}
	if len(tokens) == 0 {
		l.dumpConfig()
		return
	}

	// Allow "$key=value" as well as "$key value".
	if len(tokens) == 1 && strings.Contains(tokens[0], "=") {
		parts := strings.SplitN(tokens[0], "=", 2)
		tokens = []string{parts[0], parts[1]}
	}

	key := strings.ToLower(tokens[0])
	switch {
	case key == "json" && len(tokens) == 2:
		l.batchSet(tokens[1])
	case len(tokens) == 1:
		v, ok := l.Config.Get(key)
		if !ok {
			l.Lines.WriteLine(`{"er":{"msg":"unknown key ` + key + `"}}`)
			return
		}
		l.Lines.WriteLine(`{"` + key + `":` + report.Ftoa(v, 6) + `}`)
	case len(tokens) == 2:
		v, err := report.ParseFloat(tokens[1])
		if err != nil {
			l.Lines.WriteLine(`{"er":{"msg":"bad value for ` + key + `"}}`)
			return
		}
		if err := l.Config.Set(key, v); err != nil {
			l.Lines.WriteLine(`{"er":{"msg":"` + err.Error() + `"}}`)
			return
		}
		l.Lines.WriteLine(`{"` + key + `":` + report.Ftoa(v, 6) + `}`)
	default:
		l.Lines.WriteLine(`{"er":{"msg":"malformed $ line"}}`)
	}
}

func (l *Loop) dumpConfig() {
	snap, err := l.Config.Snapshot()
	if err != nil {
		glog.Errorf("control: config snapshot: %v", err)
		return
	}
	l.Lines.WriteLine(string(snap))
}

// batchSet applies a JSON object of key/value pairs, reporting each
// rejected key but applying the rest (range errors reject the value,
// the field keeps its prior state).
func (l *Loop) batchSet(payload string) {
	var kv map[string]float64
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		l.Lines.WriteLine(`{"er":{"msg":"bad json payload"}}`)
		return
	}
	for k, v := range kv {
		if err := l.Config.Set(strings.ToLower(k), v); err != nil {
			l.Lines.WriteLine(`{"er":{"msg":"` + err.Error() + `"}}`)
		}
	}
}
