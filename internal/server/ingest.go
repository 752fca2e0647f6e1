package server

import (
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/docsearch/internal/models"
)

// ingestAccepted is the 202 body returned when a job is queued.
type ingestAccepted struct {
	JobID   string   `json:"job_id"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// handleIngest accepts multipart form data with repeated "input" fields.
// A single plain-text field names a directory under the configured data
// path; file fields are direct PDF uploads. The two variants cannot be
// mixed.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Request must be multipart form data.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	dirs := r.MultipartForm.Value["input"]
	uploads := r.MultipartForm.File["input"]

	switch {
	case len(dirs) > 0 && len(uploads) > 0:
		writeError(w, http.StatusBadRequest, "Provide either a directory path or file uploads, not both.")
	case len(dirs) > 1:
		writeError(w, http.StatusBadRequest, "Only one directory path is allowed.")
	case len(dirs) == 1:
		s.ingestDirectory(w, dirs[0])
	case len(uploads) > 0:
		s.ingestUploads(w, uploads)
	default:
		writeError(w, http.StatusBadRequest, "No input provided.")
	}
}

// ingestDirectory queues every PDF found under the named directory,
// which must resolve inside the configured data path.
func (s *Server) ingestDirectory(w http.ResponseWriter, dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		writeError(w, http.StatusBadRequest, "Directory path cannot be empty.")
		return
	}

	root, err := s.resolveDataDir(dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Directory path escapes the data directory.")
		return
	}

	files, err := collectPDFs(root)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Cannot read directory: %v", err))
		return
	}
	if len(files) == 0 {
		writeJSON(w, http.StatusAccepted, ingestAccepted{
			Message: "No PDF files found in directory.",
			Files:   []string{},
		})
		return
	}

	s.accept(w, files)
}

// ingestUploads queues the uploaded PDF files.
func (s *Server) ingestUploads(w http.ResponseWriter, uploads []*multipart.FileHeader) {
	if len(uploads) > s.cfg.MaxFilesPerUpload {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many files: maximum is %d per request.", s.cfg.MaxFilesPerUpload))
		return
	}

	files := make([]models.PendingFile, 0, len(uploads))
	for _, header := range uploads {
		name := filepath.Base(header.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Only PDF files are supported, got: %s", name))
			return
		}
		if header.Size > s.cfg.MaxUploadSize {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("File %s exceeds the maximum upload size.", name))
			return
		}

		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Cannot read upload %s.", name))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Cannot read upload %s.", name))
			return
		}

		files = append(files, models.PendingFile{Name: name, Content: content})
	}

	s.accept(w, files)
}

// accept submits the files as one job and writes the 202 response.
func (s *Server) accept(w http.ResponseWriter, files []models.PendingFile) {
	jobID, err := s.coordinator.Submit(files)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to queue ingestion job.")
		return
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	writeJSON(w, http.StatusAccepted, ingestAccepted{
		JobID:   jobID,
		Message: fmt.Sprintf("Ingestion started. %d PDF document(s) queued for processing.", len(files)),
		Files:   names,
	})
}

// handleIngestStatus reports the current record for a job id.
func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	record, ok := s.coordinator.Jobs().Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// resolveDataDir joins dir with the data path and rejects anything that
// escapes it.
func (s *Server) resolveDataDir(dir string) (string, error) {
	root := filepath.Clean(s.cfg.IngestDataPath)
	resolved := filepath.Clean(filepath.Join(root, dir))

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("directory %q escapes the data directory", dir)
	}
	return resolved, nil
}

// collectPDFs walks root and reads every *.pdf file, in walk order.
func collectPDFs(root string) ([]models.PendingFile, error) {
	var files []models.PendingFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, models.PendingFile{Name: d.Name(), Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
