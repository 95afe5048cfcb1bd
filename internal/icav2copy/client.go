//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package icav2copy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/pkg/errors"
)

const BaseURL = "https://ica.illumina.com/ica/rest"

var ErrNotFound = errors.New("project data not found")

type SecretsManager interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var _ SecretsManager = (*secretsmanager.Client)(nil)

// AccessToken of ICAv2 is stored as plain secret string.
func AccessToken(ctx context.Context, secrets SecretsManager, secretID string) (string, error) {
	out, err := secrets.GetSecretValue(ctx,
		&secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)},
	)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret %s", secretID)
	}
	if aws.ToString(out.SecretString) == "" {
		return "", errors.Errorf("secret %s is empty", secretID)
	}
	return aws.ToString(out.SecretString), nil
}

// Client of ICAv2 project data API
type Client struct {
	http    heimdall.Doer
	stream  heimdall.Doer
	baseURL string
	token   string
}

var _ ICA = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	backoff := heimdall.NewExponentialBackoff(250*time.Millisecond, 4*time.Second, 2.0, 100*time.Millisecond)

	return &Client{
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(30*time.Second),
			httpclient.WithRetryCount(3),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
		// presigned transfers stream the body, heimdall buffers it for retries
		stream:  &http.Client{Timeout: 14 * time.Minute},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

type page struct {
	Items         []ProjectData `json:"items"`
	NextPageToken string        `json:"nextPageToken"`
}

func (c *Client) Get(ctx context.Context, ref DataRef) (*ProjectData, error) {
	var pd ProjectData
	err := c.do(ctx, http.MethodGet, c.dataURL(ref.ProjectID, ref.DataID), nil, &pd)
	if err != nil {
		return nil, errors.Wrapf(err, "project data %s/%s", ref.ProjectID, ref.DataID)
	}
	return &pd, nil
}

// Lookup project data by its absolute path, folders end with '/'.
func (c *Client) Lookup(ctx context.Context, projectID, filePath string) (*ProjectData, error) {
	query := url.Values{
		"filePath":          []string{filePath},
		"filePathMatchMode": []string{"FULL_CASE_INSENSITIVE"},
	}

	var seq page
	if err := c.do(ctx, http.MethodGet, c.dataURL(projectID, "")+"?"+query.Encode(), nil, &seq); err != nil {
		return nil, errors.Wrapf(err, "project data %s%s", projectID, filePath)
	}

	for i := range seq.Items {
		if seq.Items[i].Data.Details.Path == filePath {
			return &seq.Items[i], nil
		}
	}

	return nil, errors.Wrapf(ErrNotFound, "%s%s%s", Scheme, projectID, filePath)
}

// List direct children of the folder.
func (c *Client) List(ctx context.Context, projectID, folderID string) ([]ProjectData, error) {
	seq := []ProjectData{}
	token := ""

	for {
		query := url.Values{
			"parentFolderId": []string{folderID},
			"pageSize":       []string{"1000"},
		}
		if token != "" {
			query.Set("pageToken", token)
		}

		var p page
		if err := c.do(ctx, http.MethodGet, c.dataURL(projectID, "")+"?"+query.Encode(), nil, &p); err != nil {
			return nil, errors.Wrapf(err, "folder %s/%s", projectID, folderID)
		}

		seq = append(seq, p.Items...)
		if p.NextPageToken == "" {
			return seq, nil
		}
		token = p.NextPageToken
	}
}

func (c *Client) CreateFolder(ctx context.Context, projectID, folderPath string) (*ProjectData, error) {
	if existing, err := c.Lookup(ctx, projectID, folderPath); err == nil {
		return existing, nil
	}

	parent, name := path.Split(strings.TrimSuffix(folderPath, "/"))
	req := map[string]string{
		"name":       name,
		"folderPath": parent,
		"dataType":   DataTypeFolder,
	}

	var pd ProjectData
	if err := c.do(ctx, http.MethodPost, c.dataURL(projectID, ""), req, &pd); err != nil {
		return nil, errors.Wrapf(err, "failed to create folder %s%s", projectID, folderPath)
	}
	return &pd, nil
}

func (c *Client) Delete(ctx context.Context, ref DataRef) error {
	err := c.do(ctx, http.MethodPost, c.dataURL(ref.ProjectID, ref.DataID)+":delete", nil, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to delete %s/%s", ref.ProjectID, ref.DataID)
	}
	return nil
}

// CopyBatch submits copy of data into destination folder, returns job id.
func (c *Client) CopyBatch(ctx context.Context, dataIDs []string, destination DataRef) (string, error) {
	items := make([]map[string]string, 0, len(dataIDs))
	for _, id := range dataIDs {
		items = append(items, map[string]string{"dataId": id})
	}

	req := map[string]any{
		"items":               items,
		"destinationFolderId": destination.DataID,
		"copyUserTags":        true,
		"copyTechnicalTags":   true,
		"copyInstrumentInfo":  true,
		"actionOnExist":       "OVERWRITE",
	}

	var job struct {
		ID string `json:"id"`
	}
	endpoint := c.baseURL + "/api/projects/" + url.PathEscape(destination.ProjectID) + "/dataCopyBatch"
	if err := c.do(ctx, http.MethodPost, endpoint, req, &job); err != nil {
		return "", errors.Wrap(err, "failed to submit copy batch")
	}
	return job.ID, nil
}

// JobStatus of the copy batch
func (c *Client) JobStatus(ctx context.Context, projectID, jobID string) (string, error) {
	var job struct {
		Status string `json:"status"`
	}
	endpoint := c.baseURL + "/api/projects/" + url.PathEscape(projectID) + "/dataCopyBatch/" + url.PathEscape(jobID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &job); err != nil {
		return "", errors.Wrapf(err, "copy batch %s", jobID)
	}
	return job.Status, nil
}

// DownloadURL is presigned url of the file content.
func (c *Client) DownloadURL(ctx context.Context, ref DataRef) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, c.dataURL(ref.ProjectID, ref.DataID)+":createDownloadUrl", nil, &out); err != nil {
		return "", errors.Wrapf(err, "failed to create download url %s/%s", ref.ProjectID, ref.DataID)
	}
	return out.URL, nil
}

// CreateFile creates empty file in the folder, returns presigned upload url.
func (c *Client) CreateFile(ctx context.Context, folder DataRef, name string) (string, error) {
	req := map[string]string{
		"name":     name,
		"folderId": folder.DataID,
	}

	var out struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := c.do(ctx, http.MethodPost, c.dataURL(folder.ProjectID, "")+":createFileWithUploadUrl", req, &out); err != nil {
		return "", errors.Wrapf(err, "failed to create file %s in %s/%s", name, folder.ProjectID, folder.DataID)
	}
	return out.UploadURL, nil
}

// Transfer streams content of the download url into the upload url.
func (c *Client) Transfer(ctx context.Context, downloadURL, uploadURL string) error {
	get, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return err
	}

	src, err := c.stream.Do(get)
	if err != nil {
		return errors.Wrap(err, "failed to download")
	}
	defer src.Body.Close()

	if src.StatusCode > 299 {
		return errors.Errorf("failed to download: %s", src.Status)
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, src.Body)
	if err != nil {
		return err
	}
	put.ContentLength = src.ContentLength
	put.Header.Set("Content-Type", "application/octet-stream")

	dst, err := c.stream.Do(put)
	if err != nil {
		return errors.Wrap(err, "failed to upload")
	}
	defer dst.Body.Close()

	if dst.StatusCode > 299 {
		return errors.Errorf("failed to upload: %s", dst.Status)
	}
	return nil
}

func (c *Client) dataURL(projectID, dataID string) string {
	endpoint := c.baseURL + "/api/projects/" + url.PathEscape(projectID) + "/data"
	if dataID != "" {
		endpoint += "/" + url.PathEscape(dataID)
	}
	return endpoint
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		doc, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(doc)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.illumina.v3+json")
	if in != nil {
		req.Header.Set("Content-Type", "application/vnd.illumina.v3+json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode > 299:
		return errors.Errorf("unexpected status code: %s", res.Status)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, "malformed response")
	}
	return nil
}
