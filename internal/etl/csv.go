package etl

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
)

// teamRow is one line of a teams export
type teamRow struct {
	TeamName string `csv:"team_name"`
	Mascot   string `csv:"mascot"`
	City     string `csv:"city"`
	State    string `csv:"state"`
	Division string `csv:"division"`
	Region   string `csv:"region"`
	District string `csv:"district"`
	TeamCode string `csv:"team_code"`
}

// hudlRow is one line of a play-by-play export. Every column is read as text
// and converted leniently, so an unparseable cell becomes NULL instead of
// failing the file.
type hudlRow struct {
	DriveID       string `csv:"drive_id"`
	Quarter       string `csv:"quarter"`
	Clock         string `csv:"clock"`
	Down          string `csv:"down"`
	Distance      string `csv:"distance"`
	YardLine      string `csv:"yard_line"`
	HashMark      string `csv:"hash_mark"`
	FormationRaw  string `csv:"formation_raw"`
	FormationNorm string `csv:"formation_norm"`
	Personnel     string `csv:"personnel"`
	PlayType      string `csv:"play_type"`
	RunDirection  string `csv:"run_direction"`
	PassZone      string `csv:"pass_zone"`
	YardsGained   string `csv:"yards_gained"`
	Result        string `csv:"result"`
}

// headerAliases maps column titles used by Hudl's own exports onto the
// snake_case names above. Keys are already passed through canonicalHeader.
var headerAliases = map[string]string{
	"name":      "team_name",
	"team":      "team_name",
	"school":    "team_name",
	"code":      "team_code",
	"abbr":      "team_code",
	"drive":     "drive_id",
	"qtr":       "quarter",
	"dn":        "down",
	"dist":      "distance",
	"yard_ln":   "yard_line",
	"yardline":  "yard_line",
	"hash":      "hash_mark",
	"off_form":  "formation_raw",
	"formation": "formation_raw",
	"pers":      "personnel",
	"play_dir":  "run_direction",
	"gn_ls":     "yards_gained",
	"gain":      "yards_gained",
	"gain_loss": "yards_gained",
}

// newDecoder reads the header line, canonicalizes it, and returns a csvutil
// decoder over the remaining records.
func newDecoder(r io.Reader) (*csvutil.Decoder, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading CSV header: file is empty: %w", ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w: %w", ErrInvalidCSV, err)
	}

	for i, h := range header {
		header[i] = canonicalHeader(h)
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, fmt.Errorf("creating CSV decoder: %w: %w", ErrInvalidCSV, err)
	}
	return dec, nil
}

// canonicalHeader lowercases a column title, folds separators to
// underscores and applies headerAliases.
func canonicalHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '-', '.':
			return '_'
		}
		return r
	}, h)
	for strings.Contains(h, "__") {
		h = strings.ReplaceAll(h, "__", "_")
	}
	h = strings.Trim(h, "_")

	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// parseInt returns a NULL for empty or non-integer cells.
func parseInt(value string) sql.NullInt32 {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullInt32{}
	}
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(n), Valid: true}
}

// nullString trims value and maps "" to NULL.
func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
