package api

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// EncodeContent fills the content fields of resp, choosing base64 for
// bytes that are not valid UTF-8.
func EncodeContent(resp *FileResponse, content []byte) {
	if utf8.Valid(content) {
		resp.Encoding = EncodingUTF8
		resp.Content = string(content)
		return
	}
	resp.Encoding = EncodingBase64
	resp.ContentBase64 = base64.StdEncoding.EncodeToString(content)
}

// DecodeContent returns the raw bytes carried by resp.
func (r FileResponse) DecodeContent() ([]byte, error) {
	if r.Encoding == EncodingBase64 || r.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(r.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("decode content_base64: %w", err)
		}
		return data, nil
	}
	return []byte(r.Content), nil
}

// Bytes returns the payload of a commit request.
func (r CommitRequest) Bytes() ([]byte, error) {
	if r.Content != "" && r.ContentBase64 != "" {
		return nil, fmt.Errorf("content and content_base64 are mutually exclusive")
	}
	if r.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(r.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid content_base64: %w", err)
		}
		return data, nil
	}
	return []byte(r.Content), nil
}

// NewCommitRequest builds a commit payload, picking the encoding for content.
func NewCommitRequest(filePath, message string, content []byte, contentType string) CommitRequest {
	req := CommitRequest{FilePath: filePath, Message: message, ContentType: contentType}
	if utf8.Valid(content) {
		req.Content = string(content)
	} else {
		req.ContentBase64 = base64.StdEncoding.EncodeToString(content)
	}
	return req
}
