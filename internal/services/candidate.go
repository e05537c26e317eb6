package services

import (
	"path/filepath"

	"produce-sorter/internal/config"
	"produce-sorter/internal/pipeline"
)

// CandidateLayout resolves every file of a candidate folder.
type CandidateLayout struct {
	Dir        string
	Image      string
	Mask       string
	Processed  string
	ColorTable string
	ShapeTable string
}

// NewCandidateLayout places mask and processed images under their
// subfolders with the output extension in use.
func NewCandidateLayout(dir string, c config.Candidate, saver *pipeline.Saver) CandidateLayout {
	return CandidateLayout{
		Dir:        dir,
		Image:      filepath.Join(dir, c.Image),
		Mask:       saver.PathFor(filepath.Join(dir, c.MaskDir), pipeline.Stem(c.MaskFile)),
		Processed:  saver.PathFor(filepath.Join(dir, c.ProcessedDir), pipeline.Stem(c.ProcessedFile)),
		ColorTable: filepath.Join(dir, c.ColorTable),
		ShapeTable: filepath.Join(dir, c.ShapeTable),
	}
}
