//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package fastqsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/pkg/errors"
)

const (
	fastqListRowEndpoint = "api/v1/fastq"
	fastqSetEndpoint     = "api/v1/fastqSet"
	unarchivingEndpoint  = "api/v1/jobs"
)

type SSM interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsManager interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var (
	_ SSM            = (*ssm.Client)(nil)
	_ SecretsManager = (*secretsmanager.Client)(nil)
)

// Fastq manager API
type Fastq interface {
	GetFastq(ctx context.Context, id string) (*FastqListRow, error)
	GetFastqSet(ctx context.Context, id string) (*FastqSet, error)
}

// Client of fastq manager API
type Client struct {
	http           heimdall.Doer
	baseURL        string
	unarchivingURL string
	token          string
}

var (
	_ Fastq = (*Client)(nil)
	_ Jobs  = (*Client)(nil)
)

// NewClient with bounded retries, 5xx responses are retried.
func NewClient(baseURL, token string) *Client {
	backoff := heimdall.NewConstantBackoff(500*time.Millisecond, 250*time.Millisecond)

	return &Client{
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(20*time.Second),
			httpclient.WithRetryCount(3),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		unarchivingURL: strings.TrimSuffix(baseURL, "/"),
		token:          token,
	}
}

// WithUnarchiving overrides endpoint of fastq unarchiving manager.
func (c *Client) WithUnarchiving(baseURL string) *Client {
	c.unarchivingURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// BaseURL of fastq manager is derived from the hosted zone name.
func BaseURL(hostname string) string {
	return "https://fastq." + hostname
}

// UnarchivingBaseURL of fastq unarchiving manager
func UnarchivingBaseURL(hostname string) string {
	return "https://fastq-unarchiving." + hostname
}

// Endpoint of fastq services
type Endpoint struct {
	BaseURL        string
	UnarchivingURL string
	Token          string
}

// Client of the endpoint
func (ep Endpoint) Client() *Client {
	return NewClient(ep.BaseURL, ep.Token).WithUnarchiving(ep.UnarchivingURL)
}

// Resolve endpoints and service token of fastq services from SSM parameter
// (hosted zone name) and Secrets Manager (orcabus service token).
func Resolve(ctx context.Context, params SSM, secrets SecretsManager, hostnameParameter, tokenSecretID string) (Endpoint, error) {
	param, err := params.GetParameter(ctx,
		&ssm.GetParameterInput{Name: aws.String(hostnameParameter)},
	)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "failed to read parameter %s", hostnameParameter)
	}
	if param.Parameter == nil || aws.ToString(param.Parameter.Value) == "" {
		return Endpoint{}, errors.Errorf("parameter %s is empty", hostnameParameter)
	}

	secret, err := secrets.GetSecretValue(ctx,
		&secretsmanager.GetSecretValueInput{SecretId: aws.String(tokenSecretID)},
	)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "failed to read secret %s", tokenSecretID)
	}

	var token struct {
		IDToken string `json:"id_token"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(secret.SecretString)), &token); err != nil {
		return Endpoint{}, errors.Wrapf(err, "malformed secret %s", tokenSecretID)
	}
	if token.IDToken == "" {
		return Endpoint{}, errors.Errorf("secret %s has no id_token", tokenSecretID)
	}

	hostname := aws.ToString(param.Parameter.Value)
	return Endpoint{
		BaseURL:        BaseURL(hostname),
		UnarchivingURL: UnarchivingBaseURL(hostname),
		Token:          token.IDToken,
	}, nil
}

func (c *Client) GetFastq(ctx context.Context, id string) (*FastqListRow, error) {
	var row FastqListRow
	query := url.Values{"includeS3Details": []string{"true"}}
	if err := c.get(ctx, c.baseURL, fastqListRowEndpoint+"/"+url.PathEscape(id), query, &row); err != nil {
		return nil, errors.Wrapf(err, "fastq list row %s", id)
	}
	return &row, nil
}

func (c *Client) GetFastqSet(ctx context.Context, id string) (*FastqSet, error) {
	var set FastqSet
	query := url.Values{"includeS3Details": []string{"true"}}
	if err := c.get(ctx, c.baseURL, fastqSetEndpoint+"/"+url.PathEscape(id), query, &set); err != nil {
		return nil, errors.Wrapf(err, "fastq set %s", id)
	}
	return &set, nil
}

func (c *Client) get(ctx context.Context, baseURL, path string, query url.Values, val any) error {
	return c.do(ctx, http.MethodGet, baseURL, path, query, nil, val)
}

func (c *Client) post(ctx context.Context, baseURL, path string, in, val any) error {
	return c.do(ctx, http.MethodPost, baseURL, path, nil, in, val)
}

func (c *Client) do(ctx context.Context, method, baseURL, path string, query url.Values, in, val any) error {
	endpoint := fmt.Sprintf("%s/%s", baseURL, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

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
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		return err
	}
	defer res.Body.Close()

	if res.StatusCode > 299 {
		return errors.Errorf("unexpected status code: %s", res.Status)
	}

	if val == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(val); err != nil {
		return errors.Wrap(err, "malformed response")
	}

	return nil
}
