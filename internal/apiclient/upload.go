package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadFile is one file of a batch, in its population's order.
type UploadFile struct {
	Filename string
	Data     []byte
}

// UploadedFile is one record of the boundary's response, in submission
// order. Correlation with the submitted files is purely positional.
type UploadedFile struct {
	URL string `json:"url"`
}

type uploadResponse struct {
	Files []UploadedFile `json:"files"`
}

// UploadBatch issues one multipart batch upload for a population ("images"
// or "documents") against the tenant-scoped media endpoint. The body is
// streamed through a pipe so large batches never buffer fully in memory.
func (c *Client) UploadBatch(ctx context.Context, tenant, population string, files []UploadFile, token string) ([]UploadedFile, error) {
	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		defer pipeWriter.Close()
		defer writer.Close()

		for _, f := range files {
			part, err := writer.CreateFormFile("files", f.Filename)
			if err != nil {
				pipeWriter.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, bytes.NewReader(f.Data)); err != nil {
				pipeWriter.CloseWithError(err)
				return
			}
		}
	}()

	path := fmt.Sprintf("/v1/%s/media/%s", tenant, population)
	resp, err := c.do(ctx, http.MethodPost, path, pipeReader, writer.FormDataContentType(), token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: upload returned status %d: %s", ErrRequestFailed, resp.StatusCode, readBody(resp))
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: cannot decode upload response: %v", ErrBadResponse, err)
	}
	for i, f := range parsed.Files {
		if f.URL == "" {
			return nil, fmt.Errorf("%w: record %d has no url", ErrBadResponse, i)
		}
	}
	return parsed.Files, nil
}
