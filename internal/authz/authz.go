//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package authz is HTTP API authorizer backed by Verified Permissions.
// Cognito tokens are evaluated against the policy store, the request is
// allowed iff the decision is ALLOW.
package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions/types"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ActionType   = "OrcaBus::Action"
	ResourceType = "OrcaBus::Resource"
	ReadAccess   = "readAccess"
	WriteAccess  = "writeAccess"
)

type VerifiedPermissions interface {
	IsAuthorizedWithToken(ctx context.Context, params *verifiedpermissions.IsAuthorizedWithTokenInput, optFns ...func(*verifiedpermissions.Options)) (*verifiedpermissions.IsAuthorizedWithTokenOutput, error)
}

var _ VerifiedPermissions = (*verifiedpermissions.Client)(nil)

type Authorizer struct {
	avp           VerifiedPermissions
	policyStoreID string
	log           *zap.Logger
}

func New(avp VerifiedPermissions, policyStoreID string, log *zap.Logger) *Authorizer {
	return &Authorizer{avp: avp, policyStoreID: policyStoreID, log: log}
}

// Action required by HTTP method, safe methods need read access only.
func Action(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ReadAccess
	default:
		return WriteAccess
	}
}

// BearerToken extracts token from Authorization header.
func BearerToken(headers map[string]string) (string, error) {
	for key, val := range headers {
		if !strings.EqualFold(key, "authorization") {
			continue
		}
		scheme, token, ok := strings.Cut(strings.TrimSpace(val), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return "", errors.New("authorization is not bearer token")
		}
		return token, nil
	}
	return "", errors.New("authorization header is missing")
}

// Claims of the token, signature is not verified here. The policy store
// verifies the token against its Cognito identity source.
func Claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "malformed token")
	}
	return claims, nil
}

// Authorize is simple response handler of HTTP API lambda authorizer.
// Errors never leak to the caller, any failure denies the request.
func (a *Authorizer) Authorize(ctx context.Context, req events.APIGatewayV2CustomAuthorizerV2Request) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
	deny := events.APIGatewayV2CustomAuthorizerSimpleResponse{IsAuthorized: false}

	allowed, err := a.isAuthorized(ctx, req)
	if err != nil {
		a.log.Warn("request is denied", zap.Error(err), zap.String("path", req.RawPath))
		return deny, nil
	}

	return events.APIGatewayV2CustomAuthorizerSimpleResponse{IsAuthorized: allowed}, nil
}

func (a *Authorizer) isAuthorized(ctx context.Context, req events.APIGatewayV2CustomAuthorizerV2Request) (bool, error) {
	token, err := BearerToken(req.Headers)
	if err != nil {
		return false, err
	}

	claims, err := Claims(token)
	if err != nil {
		return false, err
	}

	method := req.RequestContext.HTTP.Method
	input := &verifiedpermissions.IsAuthorizedWithTokenInput{
		PolicyStoreId: aws.String(a.policyStoreID),
		Action: &types.ActionIdentifier{
			ActionType: aws.String(ActionType),
			ActionId:   aws.String(Action(method)),
		},
		Resource: &types.EntityIdentifier{
			EntityType: aws.String(ResourceType),
			EntityId:   aws.String(req.RawPath),
		},
	}

	if claims["token_use"] == "id" {
		input.IdentityToken = aws.String(token)
	} else {
		input.AccessToken = aws.String(token)
	}

	out, err := a.avp.IsAuthorizedWithToken(ctx, input)
	if err != nil {
		return false, errors.Wrap(err, "policy store")
	}

	a.log.Info("authorization decision",
		zap.Any("username", claims["cognito:username"]),
		zap.Any("groups", claims["cognito:groups"]),
		zap.String("method", method),
		zap.String("path", req.RawPath),
		zap.String("decision", string(out.Decision)),
	)

	return out.Decision == types.DecisionAllow, nil
}
