package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const recordColumns = `id, timestamp, launcher_kind, version_id, root_path, asset_id, content_hash, outcome, reason, backup_ref`

// Append inserts an apply record. A missing ID or Timestamp is filled in.
func (j *Journal) Append(r *Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO apply_records
		(` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.Exec(query,
		r.ID,
		r.Timestamp.Format(time.RFC3339Nano),
		r.Kind,
		r.VersionID,
		r.Root,
		r.AssetID,
		r.ContentHash,
		string(r.Outcome),
		r.Reason,
		r.BackupRef,
	)
	if err != nil {
		return fmt.Errorf("failed to append record %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns the n most recent records, most recent first.
func (j *Journal) Recent(n int) ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM apply_records
		ORDER BY seq DESC
		LIMIT ?
	`
	return j.queryRecords(query, n)
}

// All returns every record, most recent first.
func (j *Journal) All() ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM apply_records
		ORDER BY seq DESC
	`
	return j.queryRecords(query)
}

// ActiveAsset returns the asset id of the most recent successful apply to a
// target, or ok=false when the target has never had one.
func (j *Journal) ActiveAsset(kind, versionID string) (assetID string, ok bool, err error) {
	query := `
		SELECT asset_id
		FROM apply_records
		WHERE launcher_kind = ? AND version_id = ? AND outcome = ?
		ORDER BY seq DESC
		LIMIT 1
	`
	err = j.db.QueryRow(query, kind, versionID, string(OutcomeSuccess)).Scan(&assetID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get active asset for %s-%s: %w", kind, versionID, err)
	}
	return assetID, true, nil
}

// LatestSuccessForKind returns the asset id of the most recent successful
// apply to any installation of a launcher kind. After a client self-update
// retires the old version, this is what the watcher re-applies.
func (j *Journal) LatestSuccessForKind(kind string) (assetID string, ok bool, err error) {
	query := `
		SELECT asset_id
		FROM apply_records
		WHERE launcher_kind = ? AND outcome = ?
		ORDER BY seq DESC
		LIMIT 1
	`
	err = j.db.QueryRow(query, kind, string(OutcomeSuccess)).Scan(&assetID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get latest success for %s: %w", kind, err)
	}
	return assetID, true, nil
}

// AssetInUse reports whether the asset is the currently-active skybox for
// any installation target, i.e. it is the asset of the latest successful
// apply to at least one target.
func (j *Journal) AssetInUse(assetID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM apply_records a
			WHERE a.asset_id = ? AND a.outcome = ?
			AND a.seq = (
				SELECT MAX(b.seq) FROM apply_records b
				WHERE b.launcher_kind = a.launcher_kind
				AND b.version_id = a.version_id
				AND b.outcome = ?
			)
		)
	`
	var inUse bool
	err := j.db.QueryRow(query, assetID, string(OutcomeSuccess), string(OutcomeSuccess)).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("failed to check usage of %s: %w", assetID, err)
	}
	return inUse, nil
}

// Count returns the total number of records.
func (j *Journal) Count() (int, error) {
	var count int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM apply_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (j *Journal) queryRecords(query string, args ...any) ([]*Record, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		var timestamp, outcome string

		err := rows.Scan(
			&r.ID,
			&timestamp,
			&r.Kind,
			&r.VersionID,
			&r.Root,
			&r.AssetID,
			&r.ContentHash,
			&outcome,
			&r.Reason,
			&r.BackupRef,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		r.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp for %s: %w", r.ID, err)
		}
		r.Outcome = Outcome(outcome)

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
