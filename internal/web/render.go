package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

func sendJSON(w http.ResponseWriter, status int, obj interface{}) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("error encoding json response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

// sendAttachment streams the PDF at path as a download named name.
func sendAttachment(w http.ResponseWriter, r *http.Request, path, name string) error {
	f, err := os.Open(path) // #nosec G304 -- path resolved inside the invoice directory
	if err != nil {
		return fmt.Errorf("cannot open invoice: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat invoice: %w", err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
	return nil
}
