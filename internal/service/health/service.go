// Package health 提供存储层的连通性探测
package health

import (
	"context"
	"time"

	"support_chat_server/internal/dao/mysql/repository"
	redisdao "support_chat_server/internal/dao/redis"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Report 各依赖的探测结果
type Report struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Latency  string `json:"latency"`
}

const (
	statusUp       = "up"
	statusDisabled = "disabled"
)

type healthService struct {
	repos *repository.Repositories
	redis *redis.Client
}

// NewHealthService redis 为空表示未启用
func NewHealthService(repos *repository.Repositories, client *redis.Client) *healthService {
	return &healthService{repos: repos, redis: client}
}

// Ping 依次探测数据库和 Redis
// 数据库不可用时返回错误；Redis 只用于节流，不可用时记录在报告中但不返回错误
func (s *healthService) Ping(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Database: statusUp, Redis: statusDisabled}

	if err := s.repos.Ping(ctx); err != nil {
		zap.L().Warn("数据库探测失败", zap.Error(err))
		return nil, err
	}

	if s.redis != nil {
		report.Redis = statusUp
		if err := redisdao.Ping(ctx, s.redis); err != nil {
			zap.L().Warn("Redis 探测失败", zap.Error(err))
			report.Redis = err.Error()
		}
	}

	report.Latency = time.Since(start).String()
	return report, nil
}
