// Package mocks provides hand-written test doubles for the interfaces that
// cross package boundaries.
//
// Each mock exposes function fields for custom behavior and plain fields
// for canned results:
//
//	jwtService := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return nil, auth.ErrExpiredToken
//	    },
//	}
package mocks
