package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
)

// renderFrame turns one zerolog JSON event into
//
//	[<tick, 8 digits> ms][<TAG>][<file:line>][<func>] <message> [key=value ...]\r\n
func renderFrame(p []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()

	evt := map[string]interface{}{}
	if err := dec.Decode(&evt); err != nil {
		return "", fmt.Errorf("cannot decode event: %w", err)
	}

	level := InfoLevel
	if s, ok := evt[zerolog.LevelFieldName].(string); ok {
		if zl, err := zerolog.ParseLevel(s); err == nil {
			level = fromZerolog(zl)
		}
	}

	var tick uint64
	if n, ok := evt[tickFieldName].(json.Number); ok {
		tick, _ = strconv.ParseUint(n.String(), 10, 32)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%08d ms][%s][%s][%s] %s",
		tick,
		level.Tag(),
		stringField(evt, sourceFieldName),
		stringField(evt, funcFieldName),
		stringField(evt, zerolog.MessageFieldName))

	for _, key := range extraFields(evt) {
		fmt.Fprintf(&buf, " %s=%v", key, evt[key])
	}
	buf.WriteString("\r\n")

	return buf.String(), nil
}

func stringField(evt map[string]interface{}, key string) string {
	if s, ok := evt[key].(string); ok {
		return s
	}
	return ""
}

func extraFields(evt map[string]interface{}) []string {
	keys := make([]string, 0, len(evt))
	for key := range evt {
		switch key {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, tickFieldName, sourceFieldName, funcFieldName:
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
