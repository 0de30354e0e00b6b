// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/machinelog/internal/models"
)

const recordSelect = `SELECT r.id, r.machine_id, m.number, r.description, r.image_url,
	r.created_by, r.created_at, r.updated_at
	FROM records r
	JOIN machines m ON m.id = r.machine_id`

// CreateRecord stores a record owned by owner. The machine is created when its
// number is new and every tag name is connected to an existing tag or created.
func (db *DB) CreateRecord(ctx context.Context, owner string, in models.RecordInput) (rec *models.Record, err error) {
	defer db.observe("insert", "records", time.Now(), &err)

	in, err = normalizeRecordInput(owner, in)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		machine, err := db.upsertMachine(ctx, tx, in.MachineNumber)
		if err != nil {
			return err
		}

		now := db.now()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, machine_id, description, image_url, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, machine.ID, in.Description, in.ImageURL, owner, now, now,
		); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}

		return db.attachTags(ctx, tx, id, in.TagNames())
	})
	if err != nil {
		return nil, err
	}

	return db.getRecord(ctx, owner, id)
}

// ListRecords returns the owner's records, newest first.
func (db *DB) ListRecords(ctx context.Context, owner string, filter models.RecordFilter) (records []models.Record, err error) {
	defer db.observe("select", "records", time.Now(), &err)

	query := recordSelect + " WHERE r.created_by = ?"
	args := []any{owner}

	if n := strings.TrimSpace(filter.MachineNumber); n != "" {
		query += " AND m.number = ?"
		args = append(args, n)
	}
	if t := strings.TrimSpace(filter.Tag); t != "" {
		query += ` AND r.id IN (SELECT rt.record_id FROM record_tags rt
			JOIN tags t ON t.id = rt.tag_id WHERE t.name = ?)`
		args = append(args, t)
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	records = make([]models.Record, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan record: %w", scanErr)
		}
		records = append(records, *rec)
	}
	if err = rows.Err(); err != nil {
		closeQuietly(rows)
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	// Release the connection before loading tags; sqlite runs on one.
	closeQuietly(rows)

	if err = db.loadTags(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord returns ErrRecordNotFound unless the record exists and belongs to owner.
func (db *DB) GetRecord(ctx context.Context, owner, id string) (rec *models.Record, err error) {
	defer db.observe("select", "records", time.Now(), &err)
	return db.getRecord(ctx, owner, id)
}

func (db *DB) getRecord(ctx context.Context, owner, id string) (*models.Record, error) {
	row := db.conn.QueryRowContext(ctx, recordSelect+" WHERE r.id = ? AND r.created_by = ?", id, owner)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	records := []models.Record{*rec}
	if err := db.loadTags(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// UpdateRecord rewrites the owner's record: machine, description, image URL
// and the complete tag set.
func (db *DB) UpdateRecord(ctx context.Context, owner, id string, in models.RecordInput) (rec *models.Record, err error) {
	defer db.observe("update", "records", time.Now(), &err)

	in, err = normalizeRecordInput(owner, in)
	if err != nil {
		return nil, err
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.checkOwner(ctx, tx, owner, id); err != nil {
			return err
		}

		machine, err := db.upsertMachine(ctx, tx, in.MachineNumber)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET machine_id = ?, description = ?, image_url = ?, updated_at = ?
			WHERE id = ? AND created_by = ?`,
			machine.ID, in.Description, in.ImageURL, db.now(), id, owner,
		); err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM record_tags WHERE record_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear record tags: %w", err)
		}
		return db.attachTags(ctx, tx, id, in.TagNames())
	})
	if err != nil {
		return nil, err
	}

	return db.getRecord(ctx, owner, id)
}

// DeleteRecord removes the owner's record and its tag links.
func (db *DB) DeleteRecord(ctx context.Context, owner, id string) (err error) {
	defer db.observe("delete", "records", time.Now(), &err)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.checkOwner(ctx, tx, owner, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM record_tags WHERE record_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete record tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id = ? AND created_by = ?", id, owner); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return nil
	})
}

// ListTags returns all tags ordered by name with the number of records using each.
func (db *DB) ListTags(ctx context.Context) (tags []models.TagCount, err error) {
	defer db.observe("select", "tags", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx, `SELECT t.id, t.name, t.description, COUNT(DISTINCT rt.record_id)
		FROM tags t
		LEFT JOIN record_tags rt ON rt.tag_id = t.id
		GROUP BY t.id, t.name, t.description
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer closeQuietly(rows)

	tags = make([]models.TagCount, 0)
	for rows.Next() {
		var tc models.TagCount
		var desc sql.NullString
		if err := rows.Scan(&tc.ID, &tc.Name, &desc, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tc.Description = desc.String
		tags = append(tags, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

func normalizeRecordInput(owner string, in models.RecordInput) (models.RecordInput, error) {
	in.MachineNumber = strings.TrimSpace(in.MachineNumber)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if owner == "" {
		return in, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if in.MachineNumber == "" || strings.TrimSpace(in.Description) == "" {
		return in, fmt.Errorf("%w: machine number and description are required", ErrInvalidInput)
	}
	return in, nil
}

// checkOwner returns ErrRecordNotFound unless owner holds record id.
func (db *DB) checkOwner(ctx context.Context, q querier, owner, id string) error {
	var found string
	err := q.QueryRowContext(ctx, "SELECT id FROM records WHERE id = ? AND created_by = ?", id, owner).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check record owner: %w", err)
	}
	return nil
}

// attachTags connects recordID to each named tag, creating missing tags.
// Names that resolve to a tag already linked are skipped.
func (db *DB) attachTags(ctx context.Context, q querier, recordID string, names []string) error {
	insertTag := db.dialect.insertIgnore + " tags (id, name, description, created_at) VALUES (?, ?, NULL, ?)"
	linkTag := db.dialect.insertIgnore + " record_tags (record_id, tag_id) VALUES (?, ?)"
	for _, name := range names {
		if _, err := q.ExecContext(ctx, insertTag, uuid.NewString(), name, db.now()); err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		var tagID string
		if err := q.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to read tag %q: %w", name, err)
		}
		if _, err := q.ExecContext(ctx, linkTag, recordID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}
	return nil
}

// loadTags fills Tags on each record in place, ordered by tag name.
func (db *DB) loadTags(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]int, len(records))
	args := make([]any, len(records))
	for i := range records {
		records[i].Tags = make([]models.Tag, 0)
		index[records[i].ID] = i
		args[i] = records[i].ID
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT rt.record_id, t.id, t.name, t.description
		FROM record_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.record_id IN (`+placeholders(len(args))+`)
		ORDER BY t.name`, args...)
	if err != nil {
		return fmt.Errorf("failed to query record tags: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var recordID string
		var tag models.Tag
		var desc sql.NullString
		if err := rows.Scan(&recordID, &tag.ID, &tag.Name, &desc); err != nil {
			return fmt.Errorf("failed to scan record tag: %w", err)
		}
		tag.Description = desc.String
		if i, ok := index[recordID]; ok {
			records[i].Tags = append(records[i].Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating record tags: %w", err)
	}
	return nil
}

func scanRecord(s rowScanner) (*models.Record, error) {
	var r models.Record
	if err := s.Scan(&r.ID, &r.MachineID, &r.MachineNumber, &r.Description, &r.ImageURL,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}
