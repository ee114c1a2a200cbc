package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/validator"
)

// SchemaVersion identifies the on-disk shape of the giveaways file.
type SchemaVersion int

const (
	SchemaUnknown SchemaVersion = iota
	// SchemaV1 is the legacy shape: creator stored as a username string or as
	// creator_username/creator_steam_id, optionally wrapped in {"giveaways": [...]}.
	SchemaV1
	// SchemaV2 is a bare array of records with an embedded creator object.
	SchemaV2
)

func (v SchemaVersion) String() string {
	switch v {
	case SchemaV1:
		return "v1"
	case SchemaV2:
		return "v2"
	default:
		return "unknown"
	}
}

// SchemaError reports a giveaways file that cannot be turned into valid records.
// Index is the offending record, or -1 when the problem is the document itself.
type SchemaError struct {
	Path   string
	Index  int
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error in %s", e.Path)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" at record %d", e.Index)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Snapshot is the decoded content of a giveaways file.
type Snapshot struct {
	Giveaways []models.Giveaway
	Version   SchemaVersion
	Migrated  int
	Found     bool
}

// FileStore reads and writes the flat JSON giveaways file.
type FileStore struct {
	validator *validator.Validator
}

func NewFileStore() *FileStore {
	return &FileStore{validator: validator.New()}
}

// Load reads path and migrates legacy records to the current schema.
// A missing file yields an empty snapshot with Found unset. Content that is not
// valid JSON, has an unexpected root, or holds invalid records yields a *SchemaError.
func (s *FileStore) Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read giveaways file %s: %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, &SchemaError{Path: path, Index: -1, Reason: "invalid JSON"}
	}

	snap := &Snapshot{Found: true, Version: SchemaV2}
	root := gjson.ParseBytes(data)
	records := root
	if root.IsObject() {
		records = root.Get("giveaways")
		if !records.IsArray() {
			return nil, &SchemaError{Path: path, Index: -1, Reason: "object root without a giveaways array"}
		}
		snap.Version = SchemaV1
	} else if !root.IsArray() {
		return nil, &SchemaError{Path: path, Index: -1, Reason: "root is neither an array nor an object"}
	}

	var decodeErr error
	index := 0
	snap.Giveaways = make([]models.Giveaway, 0, int(records.Get("#").Int()))
	records.ForEach(func(_, value gjson.Result) bool {
		g, legacy, err := decodeRecord(value)
		if err != nil {
			decodeErr = &SchemaError{Path: path, Index: index, Reason: "cannot decode record", Err: err}
			return false
		}
		if err := s.validator.ValidateStruct(g); err != nil {
			decodeErr = &SchemaError{Path: path, Index: index, Reason: fmt.Sprintf("record %d is invalid", g.ID), Err: err}
			return false
		}
		if legacy {
			snap.Migrated++
			snap.Version = SchemaV1
		}
		snap.Giveaways = append(snap.Giveaways, g)
		index++
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return snap, nil
}

// Save writes giveaways to path as a bare, 2-space indented JSON array, replacing
// whatever the file held before.
func (s *FileStore) Save(path string, giveaways []models.Giveaway) error {
	if giveaways == nil {
		giveaways = []models.Giveaway{}
	}
	data, err := json.MarshalIndent(giveaways, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode giveaways: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write giveaways: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// legacyGiveaway shadows the fields whose shape changed between schema versions.
type legacyGiveaway struct {
	models.Giveaway
	ID              json.RawMessage `json:"id"`
	Creator         json.RawMessage `json:"creator"`
	CreatorUsername string          `json:"creator_username"`
	CreatorSteamID  string          `json:"creator_steam_id"`
}

func isLegacyRecord(value gjson.Result) bool {
	creator := value.Get("creator")
	return creator.Type == gjson.String ||
		value.Get("creator_username").Exists() ||
		value.Get("creator_steam_id").Exists()
}

func decodeRecord(value gjson.Result) (models.Giveaway, bool, error) {
	if !value.IsObject() {
		return models.Giveaway{}, false, errors.New("record is not an object")
	}

	if !isLegacyRecord(value) {
		var g models.Giveaway
		if err := json.Unmarshal([]byte(value.Raw), &g); err != nil {
			return models.Giveaway{}, false, err
		}
		return g, false, nil
	}

	var lg legacyGiveaway
	if err := json.Unmarshal([]byte(value.Raw), &lg); err != nil {
		return models.Giveaway{}, true, err
	}

	g := lg.Giveaway
	id, err := parseLegacyID(value.Get("id"))
	if err != nil {
		return models.Giveaway{}, true, err
	}
	g.ID = id

	creator := value.Get("creator")
	switch {
	case creator.Type == gjson.String:
		g.Creator = models.Creator{Username: creator.Str}
	case creator.IsObject():
		if err := json.Unmarshal(lg.Creator, &g.Creator); err != nil {
			return models.Giveaway{}, true, fmt.Errorf("invalid creator: %w", err)
		}
	}
	if lg.CreatorUsername != "" {
		g.Creator.Username = lg.CreatorUsername
	}
	if lg.CreatorSteamID != "" {
		g.Creator.SteamID = lg.CreatorSteamID
	}
	return g, true, nil
}

// parseLegacyID accepts numeric ids and numeric strings. Giveaway codes such as
// "AbCdE" carry no upstream id and are rejected.
func parseLegacyID(v gjson.Result) (int, error) {
	switch v.Type {
	case gjson.Number:
		id, err := strconv.Atoi(v.Raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", models.ErrInvalidGiveawayID, v.Raw)
		}
		return id, nil
	case gjson.String:
		id, err := strconv.Atoi(v.Str)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", models.ErrInvalidGiveawayID, v.Str)
		}
		return id, nil
	default:
		return 0, models.ErrInvalidGiveawayID
	}
}
