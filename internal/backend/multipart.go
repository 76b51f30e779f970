package backend

import (
	"bytes"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/civictide/civicweb/internal/models"
)

// encodeReportForm builds the multipart body for report creation. Field
// names match the backend's form contract exactly.
func encodeReportForm(form models.ReportForm, image io.Reader, imageName string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       form.Title,
		"description": form.Description,
		"category":    form.Category,
		"latitude":    strconv.FormatFloat(form.Latitude, 'f', -1, 64),
		"longitude":   strconv.FormatFloat(form.Longitude, 'f', -1, 64),
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	if form.Address != "" {
		if err := w.WriteField("address", form.Address); err != nil {
			return nil, "", err
		}
	}

	if image != nil {
		if imageName == "" {
			imageName = "photo.jpg"
		}
		part, err := w.CreateFormFile("image", imageName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, image); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
