package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Provisioner 把外部身份映射为本地用户，首次出现时创建
type Provisioner interface {
	Provision(ctx context.Context, externalID, email string) (uint, error)
}

// RemoteVerifier 通过外部身份服务的 /user 接口校验令牌
type RemoteVerifier struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	users   Provisioner
}

func NewRemoteVerifier(client *resty.Client, baseURL, apiKey string, users Provisioner) *RemoteVerifier {
	return &RemoteVerifier{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		users:   users,
	}
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	var user remoteUser
	req := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user)
	if v.apiKey != "" {
		req.SetHeader("apikey", v.apiKey)
	}

	resp, err := req.Get(v.baseURL + "/user")
	if err != nil {
		return Identity{}, fmt.Errorf("请求身份服务失败: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return Identity{}, ErrInvalidToken
	case resp.IsError():
		return Identity{}, fmt.Errorf("身份服务返回 %d", resp.StatusCode())
	case user.ID == "":
		return Identity{}, ErrInvalidToken
	}

	userID, err := v.users.Provision(ctx, user.ID, user.Email)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Email: user.Email}, nil
}
