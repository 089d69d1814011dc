// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package evidence handles evidence intake and chain verification:
// hashing and typing files, extracting email headers, scoring case
// relevance, and reading ChittyChain anchors.
package evidence

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DocumentType is the coarse kind of an evidence file, derived from its
// extension.
type DocumentType string

const (
	DocEmail   DocumentType = "EMAIL"
	DocPDF     DocumentType = "PDF"
	DocText    DocumentType = "TEXT"
	DocUnknown DocumentType = "UNKNOWN"
)

// Record is the intake result for one evidence file, ready for minting.
type Record struct {
	Path     string       `json:"path"`
	Type     DocumentType `json:"type"`
	SHA256   string       `json:"sha256"`
	Size     int64        `json:"size"`
	Modified time.Time    `json:"modified"`

	// Email headers, populated for DocEmail only.
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Date    string `json:"date,omitempty"`

	// Relevance is the 0-10 case relevance score.
	Relevance int `json:"relevance"`

	// ChittyID is set once the record is minted.
	ChittyID string `json:"chitty_id,omitempty"`
}

// TypeOf maps a filename to its DocumentType.
func TypeOf(path string) DocumentType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".eml", ".msg":
		return DocEmail
	case ".pdf":
		return DocPDF
	case ".txt", ".md", ".log", ".csv":
		return DocText
	default:
		return DocUnknown
	}
}

// HashFile computes the SHA-256 of a file, reading in chunks so large
// exhibits do not land in memory at once.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("evidence: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("evidence: read %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// emailHeaderLines bounds how far into a message headers are searched.
// Real headers sit at the top; bodies can be huge.
const emailHeaderLines = 50

// ExtractEmailHeaders pulls From/To/Subject/Date from the first lines of
// an .eml file. Missing headers are left empty, not an error.
func ExtractEmailHeaders(path string) (from, to, subject, date string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", "", "", fmt.Errorf("evidence: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < emailHeaderLines && scanner.Scan(); i++ {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "From:"):
			from = strings.TrimSpace(line[len("From:"):])
		case strings.HasPrefix(line, "To:"):
			to = strings.TrimSpace(line[len("To:"):])
		case strings.HasPrefix(line, "Subject:"):
			subject = strings.TrimSpace(line[len("Subject:"):])
		case strings.HasPrefix(line, "Date:"):
			date = strings.TrimSpace(line[len("Date:"):])
		}
	}
	return from, to, subject, date, scanner.Err()
}

// Scorer assigns 0-10 case relevance from weighted term matches against
// a file's path and, for text-like files, its content.
type Scorer struct {
	// Terms maps a lowercase indicator term to its weight.
	Terms map[string]int

	// ContentLimit bounds how many bytes of content are scanned.
	// Default: 256 KiB.
	ContentLimit int64
}

// MaxRelevance caps the score.
const MaxRelevance = 10

// ScorePath scores the filepath alone.
func (s *Scorer) ScorePath(path string) int {
	return s.score(strings.ToLower(path))
}

// ScoreFile scores path plus content for text-like documents. Unreadable
// content falls back to the path score.
func (s *Scorer) ScoreFile(path string) int {
	score := s.ScorePath(path)
	if score >= MaxRelevance {
		return MaxRelevance
	}

	docType := TypeOf(path)
	if docType != DocText && docType != DocEmail {
		return score
	}

	limit := s.ContentLimit
	if limit == 0 {
		limit = 256 * 1024
	}
	f, err := os.Open(path)
	if err != nil {
		return score
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return score
	}
	score += s.score(strings.ToLower(string(data)))
	if score > MaxRelevance {
		score = MaxRelevance
	}
	return score
}

func (s *Scorer) score(haystack string) int {
	total := 0
	for term, weight := range s.Terms {
		if strings.Contains(haystack, term) {
			total += weight
		}
	}
	if total > MaxRelevance {
		total = MaxRelevance
	}
	return total
}

// Intake examines one file: type, hash, size, headers, relevance.
func Intake(path string, scorer *Scorer) (Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Record{}, fmt.Errorf("evidence: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Record{}, fmt.Errorf("evidence: %s is a directory", path)
	}

	hash, err := HashFile(path)
	if err != nil {
		return Record{}, err
	}

	record := Record{
		Path:     path,
		Type:     TypeOf(path),
		SHA256:   hash,
		Size:     info.Size(),
		Modified: info.ModTime(),
	}

	if record.Type == DocEmail {
		record.From, record.To, record.Subject, record.Date, _ = ExtractEmailHeaders(path)
	}
	if scorer != nil {
		record.Relevance = scorer.ScoreFile(path)
	}
	return record, nil
}

// ScanDirectory walks root and runs Intake on every evidence-typed file
// (unknown types are skipped). Unreadable files are skipped, not fatal.
func ScanDirectory(root string, scorer *Scorer) ([]Record, error) {
	var records []Record
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || TypeOf(path) == DocUnknown {
			return nil
		}
		record, err := Intake(path, scorer)
		if err != nil {
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("evidence: scan %s: %w", root, err)
	}
	return records, nil
}
