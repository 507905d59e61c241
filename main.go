package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	"github.com/hibiken/asynq"
	"github.com/kasmail/kasmail-server/api"
	"github.com/kasmail/kasmail-server/apiroutes"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/queue"
	"github.com/kasmail/kasmail-server/services"
	"github.com/kasmail/kasmail-server/types"
	cfg "github.com/mailio/go-web3-kit/config"
	w3srv "github.com/mailio/go-web3-kit/gingonic"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"
)

// how long a stashed attachment waits for its queued dispatch beyond the dispatch timeout
const attachmentStashMargin = time.Hour

func newRedisClient(conf global.Config, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Host + ":" + strconv.Itoa(conf.Redis.Port),
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       db,
	})
}

func initRedisRateLimiter(conf global.Config) *redis.Client {
	redisRateLimitClient := newRedisClient(conf, 1)

	// configure rate limiting
	// clears all data in the Redis database associated with the 'redisRateLimitClient' ignoring potential errors
	rCtx, rCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer rCancel()

	_ = redisRateLimitClient.FlushDB(rCtx).Err()

	limiter := redis_rate.NewLimiter(redisRateLimitClient)
	global.RateLimiter = limiter

	return redisRateLimitClient
}

// initalizes the async queue (dispatch tasks are never retried)
func initAsyncQueue(dispatchQueue *queue.DispatchQueue, env *types.Environment) *asynq.Server {
	queueRedisClient := asynq.RedisClientOpt{
		Addr:     global.Conf.Redis.Host + ":" + strconv.Itoa(global.Conf.Redis.Port),
		Username: global.Conf.Redis.Username,
		Password: global.Conf.Redis.Password,
		DB:       2,
	}

	logLevel := asynq.InfoLevel
	if global.Conf.Mode != "debug" {
		logLevel = asynq.WarnLevel
	}
	concurrency := 50
	if global.Conf.Queue.Concurrency > 0 {
		concurrency = global.Conf.Queue.Concurrency
	}

	env.TaskClient = asynq.NewClient(queueRedisClient)
	env.TaskInspector = asynq.NewInspector(queueRedisClient)
	// start a task queue server
	taskServer := asynq.NewServer(
		queueRedisClient,
		asynq.Config{
			Concurrency: concurrency,
			LogLevel:    logLevel,
		},
	)

	// start a task processing server
	mux := asynq.NewServeMux()
	mux.HandleFunc(types.QueueTypeDispatchSend, dispatchQueue.ProcessDispatchTask)

	if err := taskServer.Start(mux); err != nil {
		log.Fatalf("could not start server: %v", err)
	}
	return taskServer
}

// @title KasMail Server API
// @version 1.0
// @description Outbound message dispatch for KasMail (kaspa wallet mail)
// @SecurityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	var (
		configFile string
	)
	// configuration file optional path. Default:  current dir with  filename conf.yaml
	flag.StringVar(&configFile, "c", "conf.yaml", "Configuration file path.")
	flag.StringVar(&configFile, "config", "conf.yaml", "Configuration file path.")
	flag.Usage = usage
	flag.Parse()

	// loading configuration file
	err := cfg.NewYamlConfig(configFile, &global.Conf)
	if err != nil {
		level.Error(global.Logger).Log("msg", "conf.yaml failed to load", "err", err)
		panic("Failed to load conf.yaml")
	}
	global.Conf.ApplyDefaults()
	if global.Conf.Auth.TokenSecret == "" {
		panic("auth.tokenSecret is required")
	}

	rrClient := initRedisRateLimiter(global.Conf)
	defer rrClient.Close()

	walletRedisClient := newRedisClient(global.Conf, 0)
	defer walletRedisClient.Close()

	env := types.NewEnvironment(walletRedisClient)
	defer env.Cron.Stop()

	// server wait to shutdown monitoring channels
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	stop := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt)
	signal.Notify(stop, os.Interrupt, unix.SIGTSTP)

	// init routing (for RESTful API endpoints)
	router := w3srv.NewAPIRouter(&global.Conf.YamlConfig)

	dbSelector := ConfigDBSelector()
	ConfigDBIndexing(dbSelector)

	// configure S3 storage
	ConfigS3Storage(&global.Conf, env)

	// register relay handlers from config
	RegisterRelayHandlers(&global.Conf)

	dispatchService, walletBridge := ConfigDispatchServices(&global.Conf, dbSelector, env)
	attachmentStash := services.NewAttachmentStashService(env.RedisClient, global.Conf.DispatchTimeout()+attachmentStashMargin)

	// initialize the async queue
	taskServer := initAsyncQueue(queue.NewDispatchQueue(dispatchService, attachmentStash), env)
	defer env.TaskClient.Close()
	defer env.TaskInspector.Close()

	// configure routes
	router = apiroutes.ConfigRoutes(router, apiroutes.Apis{
		Messaging: api.NewMessagingApi(env.TaskClient, env.TaskInspector, attachmentStash, global.Conf.Storage.MaxAttachmentSize, global.Conf.DispatchTimeout()),
		Wallet:    api.NewWalletApi(walletBridge),
	})

	// start server
	srv := w3srv.Start(&global.Conf.YamlConfig, router)
	// wait for server shutdown
	go w3srv.Shutdown(srv, quit, done)

	// stop the async queue server
	go func() {
		for {
			s := <-stop
			fmt.Printf("shutting down task queue server")
			if s == unix.SIGTSTP {
				taskServer.Stop() // Stop processing new tasks
				continue
			}
			break
		}
		taskServer.Shutdown()
	}()

	level.Info(global.Logger).Log("msg", "server is ready to handle requests", "port", global.Conf.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("%v\n", err))
	}

	<-done

}

// usage will print out the flag options for the server.
func usage() {
	usageStr := `Usage: kasmail-server [options]
	Server Options:
	-c, --config <file>              Configuration file path
`
	fmt.Printf("%s\n", usageStr)
	os.Exit(0)
}
