/*Package store archives counting sessions and samples in SQLite.

The schema has two tables: sessions, one row per counting run, and samples,
one row per calibrated frame.  A Store satisfies counting.Sink so it can be
plugged into the pipeline directly.
*/
package store

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/ribeiro-lab/photond/counting"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	started     TIMESTAMP NOT NULL,
	exposure_us INTEGER NOT NULL,
	roi_width   INTEGER NOT NULL,
	roi_height  INTEGER NOT NULL,
	gain        REAL NOT NULL,
	qe          REAL NOT NULL,
	full_well   REAL NOT NULL,
	read_noise  REAL NOT NULL,
	wavelength  REAL NOT NULL,
	dark_adu    REAL,
	dark_std    REAL
);
CREATE TABLE IF NOT EXISTS samples (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	frame      INTEGER NOT NULL,
	time       TIMESTAMP NOT NULL,
	mean_adu   REAL NOT NULL,
	photons    REAL NOT NULL,
	snr        REAL NOT NULL,
	digest     TEXT NOT NULL,
	PRIMARY KEY (session_id, frame)
);
CREATE INDEX IF NOT EXISTS idx_samples_time ON samples(time);
`

// Store is a SQLite archive of counting runs
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open opens or creates the archive at path.  Use ":memory:" for an
// ephemeral archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "store: failed to open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: failed to create schema")
	}
	// samples arrive once per frame; keep the statement prepared
	insert, err := db.Prepare(`INSERT INTO samples
		(session_id, frame, time, mean_adu, photons, snr, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: failed to prepare sample insert")
	}
	return &Store{db: db, insert: insert}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	s.insert.Close()
	return s.db.Close()
}

// StartSession records the beginning of a counting run
func (s *Store) StartSession(sess counting.Session) error {
	_, err := s.db.Exec(`INSERT INTO sessions
		(id, started, exposure_us, roi_width, roi_height,
		 gain, qe, full_well, read_noise, wavelength)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.Started, sess.Exposure.Microseconds(),
		sess.ROIWidth, sess.ROIHeight,
		sess.Cal.Gain, sess.Cal.QE, sess.Cal.FullWell,
		sess.Cal.ReadNoise, sess.Cal.Wavelength)
	return errors.Wrap(err, "store: failed to insert session")
}

// SetBaseline records the dark calibration of a session
func (s *Store) SetBaseline(id uuid.UUID, darkADU, darkStdADU float64) error {
	res, err := s.db.Exec(`UPDATE sessions SET dark_adu = ?, dark_std = ? WHERE id = ?`,
		darkADU, darkStdADU, id.String())
	if err != nil {
		return errors.Wrap(err, "store: failed to update baseline")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "store: failed to read rows affected")
	}
	if n == 0 {
		return errors.Errorf("store: no session with id %s", id)
	}
	return nil
}

// Append records one calibrated sample
func (s *Store) Append(id uuid.UUID, smp counting.Sample) error {
	_, err := s.insert.Exec(
		id.String(), smp.Frame, smp.Time, smp.MeanADU, smp.Photons, smp.SNR,
		formatDigest(smp.Digest))
	return errors.Wrap(err, "store: failed to insert sample")
}

// SessionRecord is one row of the sessions table
type SessionRecord struct {
	ID         uuid.UUID `json:"id"`
	Started    time.Time `json:"started"`
	ExposureUS int64     `json:"exposureUS"`
	ROIWidth   int       `json:"roiWidth"`
	ROIHeight  int       `json:"roiHeight"`
	DarkADU    float64   `json:"darkADU"`
	DarkStdADU float64   `json:"darkStdADU"`
	Calibrated bool      `json:"calibrated"`
}

// Sessions lists all recorded sessions, most recent first
func (s *Store) Sessions() ([]SessionRecord, error) {
	rows, err := s.db.Query(`SELECT id, started, exposure_us, roi_width,
		roi_height, dark_adu, dark_std FROM sessions ORDER BY started DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "store: failed to query sessions")
	}
	defer rows.Close()
	var out []SessionRecord
	for rows.Next() {
		var (
			rec  SessionRecord
			id   string
			dark sql.NullFloat64
			std  sql.NullFloat64
		)
		err = rows.Scan(&id, &rec.Started, &rec.ExposureUS,
			&rec.ROIWidth, &rec.ROIHeight, &dark, &std)
		if err != nil {
			return nil, errors.Wrap(err, "store: failed to scan session")
		}
		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrap(err, "store: malformed session id")
		}
		rec.Calibrated = dark.Valid
		rec.DarkADU = dark.Float64
		rec.DarkStdADU = std.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentSamples returns up to limit samples of a session, most recent first
func (s *Store) RecentSamples(id uuid.UUID, limit int) ([]counting.Sample, error) {
	rows, err := s.db.Query(`SELECT frame, time, mean_adu, photons, snr, digest
		FROM samples WHERE session_id = ? ORDER BY frame DESC LIMIT ?`,
		id.String(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "store: failed to query samples")
	}
	defer rows.Close()
	var out []counting.Sample
	for rows.Next() {
		var (
			smp counting.Sample
			dig string
		)
		err = rows.Scan(&smp.Frame, &smp.Time, &smp.MeanADU,
			&smp.Photons, &smp.SNR, &dig)
		if err != nil {
			return nil, errors.Wrap(err, "store: failed to scan sample")
		}
		smp.Digest, err = parseDigest(dig)
		if err != nil {
			return nil, err
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// SessionStats summarizes the samples of a session
type SessionStats struct {
	Samples     int     `json:"samples"`
	MeanPhotons float64 `json:"meanPhotons"`
	MinPhotons  float64 `json:"minPhotons"`
	MaxPhotons  float64 `json:"maxPhotons"`
}

// Stats computes summary statistics for a session's samples
func (s *Store) Stats(id uuid.UUID) (SessionStats, error) {
	var (
		st   SessionStats
		mean sql.NullFloat64
		min  sql.NullFloat64
		max  sql.NullFloat64
	)
	err := s.db.QueryRow(`SELECT COUNT(*), AVG(photons), MIN(photons), MAX(photons)
		FROM samples WHERE session_id = ?`, id.String()).
		Scan(&st.Samples, &mean, &min, &max)
	if err != nil {
		return st, errors.Wrap(err, "store: failed to compute stats")
	}
	st.MeanPhotons = mean.Float64
	st.MinPhotons = min.Float64
	st.MaxPhotons = max.Float64
	return st, nil
}

// digests are stored as hex text; SQLite has no unsigned 64-bit integer
func formatDigest(d uint64) string {
	return strconv.FormatUint(d, 16)
}

func parseDigest(s string) (uint64, error) {
	d, err := strconv.ParseUint(s, 16, 64)
	return d, errors.Wrap(err, "store: malformed digest")
}

var _ counting.Sink = (*Store)(nil)

// Prune deletes sessions (and their samples) older than the cutoff
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	_, err := s.db.Exec(`DELETE FROM samples WHERE session_id IN
		(SELECT id FROM sessions WHERE started < ?)`, olderThan)
	if err != nil {
		return 0, errors.Wrap(err, "store: failed to prune samples")
	}
	res, err := s.db.Exec(`DELETE FROM sessions WHERE started < ?`, olderThan)
	if err != nil {
		return 0, errors.Wrap(err, "store: failed to prune sessions")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "store: failed to read rows affected")
}
