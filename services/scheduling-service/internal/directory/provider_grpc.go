//go:build protogen

package directory

import (
	"context"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/libs/grpcx"
	directoryv1 "github.com/greygj/Calendrax1.3-sub000/protos/gen/directory/v1"
)

// Profile is the subset of a user record the scheduling flow needs: a display
// name for the appointment and contact fields for notification payloads.
type Profile struct {
	UserID      string
	DisplayName string
	Email       string
	Phone       string
}

// Provider looks up user profiles in the identity directory. A nil Provider
// means the directory integration is disabled and callers fall back to the
// name supplied in the request.
type Provider interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

type grpcProvider struct {
	client directoryv1.DirectoryServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: directoryv1.NewDirectoryServiceClient(conn)}, nil
}

func (p *grpcProvider) Profile(ctx context.Context, userID string) (Profile, error) {
	resp, err := p.client.GetProfile(ctx, &directoryv1.ProfileRequest{UserId: userID})
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		UserID:      resp.GetUserId(),
		DisplayName: resp.GetDisplayName(),
		Email:       resp.GetEmail(),
		Phone:       resp.GetPhone(),
	}, nil
}
