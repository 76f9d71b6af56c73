package lark

import (
	"context"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

const (
	receiveIDTypeOpenID = "open_id"
	msgTypeText         = "text"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	// ReceiveIDType tells Lark how to interpret user ids: open_id, user_id, union_id or email
	ReceiveIDType string
}

// MessageCreator is the subset of the Lark IM API used to deliver messages
type MessageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// SDKClient wraps the Lark SDK client
type SDKClient struct {
	client        *lark.Client
	receiveIDType string
	logger        *zap.Logger
}

// NewSDKClient creates a new Lark SDK client
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	receiveIDType := cfg.ReceiveIDType
	if receiveIDType == "" {
		receiveIDType = receiveIDTypeOpenID
	}

	return &SDKClient{
		client:        client,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// Messages returns the IM message API of the underlying client
func (c *SDKClient) Messages() MessageCreator {
	return c.client.Im.Message
}

// ReceiveIDType returns the id type user ids are sent as
func (c *SDKClient) ReceiveIDType() string {
	return c.receiveIDType
}
