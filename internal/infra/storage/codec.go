package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"grade_watchdog/internal/domain/result"
	"grade_watchdog/internal/domain/session"
)

func encodeState(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHistory(raw []byte) (result.Snapshot, error) {
	snapshot := result.Snapshot{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return snapshot, nil
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return result.Snapshot{}, fmt.Errorf("%w: history: %v", result.ErrCorruptState, err)
	}
	if snapshot == nil {
		snapshot = result.Snapshot{}
	}
	for id, r := range snapshot {
		snapshot[id] = normalizeRecord(r)
	}
	return snapshot, nil
}

// normalizeRecord fills fields that older history files may lack.
func normalizeRecord(r result.Record) result.Record {
	if r.SPPoints == "" {
		r.SPPoints = result.DefaultPoints
	}
	if r.TotalPoints == "" {
		r.TotalPoints = result.DefaultPoints
	}
	if r.Result == "" {
		r.Result = result.NotGraded
	}
	return r
}

// decodeTargets accepts user ids written either as strings or as numbers.
func decodeTargets(raw []byte) (result.Targets, error) {
	targets := result.Targets{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return targets, nil
	}
	var loose map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&loose); err != nil {
		return targets, fmt.Errorf("%w: users: %v", result.ErrCorruptState, err)
	}
	for id, v := range loose {
		switch val := v.(type) {
		case string:
			targets[id] = val
		case json.Number:
			targets[id] = val.String()
		default:
			return result.Targets{}, fmt.Errorf("%w: users: unsupported value for %s", result.ErrCorruptState, id)
		}
	}
	return targets, nil
}

func decodeCookies(raw []byte) ([]session.Cookie, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var cookies []session.Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("%w: cookies: %v", result.ErrCorruptState, err)
	}
	return cookies, nil
}
