//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package authz_test

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions"
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions/types"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/authz"
	"go.uber.org/zap"
)

type fakeAVP struct {
	decision types.Decision
	err      error
	input    *verifiedpermissions.IsAuthorizedWithTokenInput
}

func (f *fakeAVP) IsAuthorizedWithToken(ctx context.Context, params *verifiedpermissions.IsAuthorizedWithTokenInput, optFns ...func(*verifiedpermissions.Options)) (*verifiedpermissions.IsAuthorizedWithTokenOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &verifiedpermissions.IsAuthorizedWithTokenOutput{Decision: f.decision}, nil
}

func token(t *testing.T, use string) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{
			"token_use":        use,
			"cognito:username": "alice",
			"cognito:groups":   []string{"admin"},
		},
	).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func request(method, auth string) events.APIGatewayV2CustomAuthorizerV2Request {
	req := events.APIGatewayV2CustomAuthorizerV2Request{
		RawPath: "/api/v1/workflowrun",
		Headers: map[string]string{},
	}
	req.RequestContext.HTTP.Method = method
	if auth != "" {
		req.Headers["authorization"] = auth
	}
	return req
}

func TestAction(t *testing.T) {
	assert.Equal(t, authz.ReadAccess, authz.Action("get"))
	assert.Equal(t, authz.ReadAccess, authz.Action("OPTIONS"))
	assert.Equal(t, authz.WriteAccess, authz.Action("POST"))
	assert.Equal(t, authz.WriteAccess, authz.Action("DELETE"))
}

func TestBearerToken(t *testing.T) {
	tkn, err := authz.BearerToken(map[string]string{"Authorization": "Bearer abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", tkn)

	_, err = authz.BearerToken(map[string]string{"authorization": "Basic abc"})
	require.Error(t, err)

	_, err = authz.BearerToken(map[string]string{})
	require.Error(t, err)
}

func TestAuthorizeAllow(t *testing.T) {
	avp := &fakeAVP{decision: types.DecisionAllow}
	a := authz.New(avp, "policy-store", zap.NewNop())

	out, err := a.Authorize(context.Background(), request("POST", "Bearer "+token(t, "id")))
	require.NoError(t, err)
	assert.True(t, out.IsAuthorized)

	assert.Equal(t, "policy-store", *avp.input.PolicyStoreId)
	assert.Equal(t, authz.WriteAccess, *avp.input.Action.ActionId)
	assert.Equal(t, "/api/v1/workflowrun", *avp.input.Resource.EntityId)
	assert.NotNil(t, avp.input.IdentityToken)
	assert.Nil(t, avp.input.AccessToken)
}

func TestAuthorizeAccessToken(t *testing.T) {
	avp := &fakeAVP{decision: types.DecisionDeny}
	a := authz.New(avp, "policy-store", zap.NewNop())

	out, err := a.Authorize(context.Background(), request("GET", "Bearer "+token(t, "access")))
	require.NoError(t, err)
	assert.False(t, out.IsAuthorized)
	assert.NotNil(t, avp.input.AccessToken)
}

func TestAuthorizeDeniesOnFailure(t *testing.T) {
	avp := &fakeAVP{err: errors.New("throttled")}
	a := authz.New(avp, "policy-store", zap.NewNop())

	for _, auth := range []string{"", "Bearer not-a-jwt", "Bearer " + token(t, "id")} {
		out, err := a.Authorize(context.Background(), request("GET", auth))
		require.NoError(t, err)
		assert.False(t, out.IsAuthorized, auth)
	}
}
