package client

import (
	"context"
	"time"

	"slotkeeper/pkg/logger"
)

// Client holds the store connections shared by every repository of a process.
type Client struct {
	Mongo *MongoClient
	Redis *RedisClient
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	c.Mongo = NewMongoClient(log, mongoURI, mongoConnTimeout)
}

func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int, connTimeout time.Duration) {
	c.Redis = NewRedisClient(log, addr, password, db, connTimeout)
}

func (c *Client) GracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.Mongo != nil && c.Mongo.Client != nil {
		_ = c.Mongo.Client.Disconnect(ctx)
	}
	if c.Redis != nil && c.Redis.Client != nil {
		_ = c.Redis.Client.Close()
	}
}
