package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support_chat_server/internal/config"
	dao "support_chat_server/internal/dao/mysql"
	myredis "support_chat_server/internal/dao/redis"
	"support_chat_server/internal/gateway/websocket"
	"support_chat_server/internal/handler"
	"support_chat_server/internal/https_server"
	"support_chat_server/internal/infrastructure/logger"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/service"
	"support_chat_server/pkg/util/jwt"
	"support_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时按默认路径查找")
	flag.Parse()

	// 1. 加载配置
	conf := config.GetConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("load config failed: %v", err)
		}
		conf = loaded
	}

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化数据库
	repos := dao.Init(&conf.MysqlConfig)
	zap.L().Info("数据库初始化成功")

	// 4. 初始化 Redis（未配置时已读节流退化为进程内窗口）
	redisClient := myredis.Init(&conf.RedisConfig)
	if redisClient != nil {
		zap.L().Info("Redis 初始化成功")
	}

	// 5. 初始化 JWT 与雪花 ID
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	if err := snowflake.Init(conf.SnowflakeConfig.MachineID); err != nil {
		zap.L().Fatal("初始化雪花算法节点失败", zap.Error(err))
	}

	// 6. 初始化事件总线
	var bus mq.EventBus
	if conf.KafkaConfig.MessageMode == "kafka" {
		kafkaBus := mq.NewKafkaBus(conf.KafkaConfig)
		kafkaBus.EnsureTopic()
		bus = kafkaBus
	} else {
		bus = mq.NewChannelBus()
	}
	go bus.Start()
	zap.L().Info("事件总线初始化成功", zap.String("mode", conf.KafkaConfig.MessageMode))

	// 7. 初始化 Service 层 (依赖注入)
	svc := service.NewServices(service.Deps{
		Repos: repos,
		Bus:   bus,
		Redis: redisClient,
		Chat:  conf.ChatConfig,
	})
	zap.L().Info("Service 层初始化成功")

	// 8. 初始化 WebSocket 网关与 HTTP 服务器
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("初始化参数校验翻译失败", zap.Error(err))
	}
	gateway := websocket.NewGateway(svc)
	engine := https_server.Init(handler.NewHandlers(svc, gateway), conf.MainConfig)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 设置信号监听
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先断开长连接，再停止接收请求，最后关闭总线
	gateway.Close()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("HTTP 服务关闭失败", zap.Error(err))
	}
	bus.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}

	zap.L().Info("服务器已关闭")
	_ = zap.L().Sync()
}
