package storage

import "fmt"

// MediaFile is one attached blob stored in the media table.
type MediaFile struct {
	ID       int64
	Filename string
	Data     []byte
}

// AddMedia stores an attachment blob under its original filename and
// returns the row id. The exporter later assigns the archive index.
func (db *DB) AddMedia(filename string, data []byte) (int64, error) {
	res, err := db.conn.Exec(`INSERT INTO media (filename, data) VALUES (?, ?)`, filename, data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert media %q: %w", filename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get media id for %q: %w", filename, err)
	}
	return id, nil
}

// MediaFiles returns all stored attachments in insertion order.
func (db *DB) MediaFiles() ([]MediaFile, error) {
	rows, err := db.conn.Query(`SELECT id, filename, data FROM media ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var files []MediaFile
	for rows.Next() {
		var f MediaFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.Data); err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
