package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/session"
	"github.com/thiagokokada/gitdesk/internal/session/selection"
)

const formatVersion = 1

// Field paths inside a persisted document.
const (
	fieldVersion          = "version"
	fieldSelectedCommit   = "selectedCommit"
	fieldCommits          = "commits"
	fieldSelectedFile     = "selectedFile"
	fieldChangeList       = "changeList"
	fieldChangeListCommit = "changeListCommit"
	fieldFileVersions     = "fileVersions"
	fieldVersionsFile     = "versionsFile"
	fieldMobileStep       = "mobileStep"
)

// Encode stores each field under its own key so a damaged field can be
// skipped without losing the others.
func Encode(st session.State) ([]byte, error) {
	sel := st.Selection
	fields := []struct {
		path  string
		value any
	}{
		{fieldVersion, formatVersion},
		{fieldCommits, st.Commits},
		{fieldSelectedFile, sel.File},
		{fieldChangeList, sel.ChangeList},
		{fieldChangeListCommit, sel.ChangeListCommit},
		{fieldFileVersions, sel.Versions},
		{fieldVersionsFile, sel.VersionsFile},
		{fieldMobileStep, sel.Step},
	}
	if sel.Commit != nil {
		fields = append(fields, struct {
			path  string
			value any
		}{fieldSelectedCommit, sel.Commit})
	}
	doc := []byte("{}")
	for _, f := range fields {
		raw, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.path, err)
		}
		doc, err = sjson.SetRawBytes(doc, f.path, raw)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.path, err)
		}
	}
	return doc, nil
}

// Decode reads a document written by Encode. It reports false when data is
// not a JSON object; fields that fail to decode are left empty.
func Decode(data []byte) (session.State, bool) {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return session.State{}, false
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return session.State{}, false
	}
	var st session.State
	st.Commits, _ = decodeField[[]git.Commit](root, fieldCommits)
	if commit, ok := decodeField[git.Commit](root, fieldSelectedCommit); ok && commit.Hash != "" {
		st.Selection.Commit = &commit
	}
	st.Selection.File, _ = decodeField[string](root, fieldSelectedFile)
	st.Selection.ChangeList, _ = decodeField[[]string](root, fieldChangeList)
	st.Selection.ChangeListCommit, _ = decodeField[string](root, fieldChangeListCommit)
	st.Selection.Versions, _ = decodeField[git.FileVersions](root, fieldFileVersions)
	st.Selection.VersionsFile, _ = decodeField[string](root, fieldVersionsFile)
	if step, ok := decodeField[selection.Step](root, fieldMobileStep); ok && step.Valid() {
		st.Selection.Step = step
	}
	return st, true
}

// decodeField returns the zero value when path is missing or malformed.
func decodeField[T any](root gjson.Result, path string) (T, bool) {
	var v T
	res := root.Get(path)
	if !res.Exists() {
		return v, false
	}
	if err := json.Unmarshal([]byte(res.Raw), &v); err != nil {
		slog.Debug("dropping persisted field", slog.String("field", path), slog.Any("error", err))
		var zero T
		return zero, false
	}
	return v, true
}
