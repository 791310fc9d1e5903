package main

import (
	"bufio"
	"encoding/json"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-fenghuotai/pkg/alerter"
	"go-fenghuotai/pkg/config"
	"go-fenghuotai/pkg/consumer"
	"go-fenghuotai/pkg/logger"
	"go-fenghuotai/pkg/models"
	"go-fenghuotai/pkg/pipeline"
	"go-fenghuotai/pkg/storage"
)

func main() {
	filePath := flag.String("file", "", "对JSON lines格式的日志文件做一次性分析并输出报告")
	flag.Parse()

	if err := config.Init(); err != nil {
		stdlog.Fatalf("初始化配置失败: %v", err)
	}
	cfg := config.GlobalConfig

	log := logger.New(cfg.Log.Level, cfg.Log.Path)
	defer log.Sync()

	pipe := pipeline.New(cfg.AnalysisParams(), log)

	// 文件模式：读入整批、分析、打印报告后退出
	if *filePath != "" {
		if err := runFile(pipe, *filePath, log); err != nil {
			log.Fatalf("文件分析失败: %v", err)
		}
		return
	}

	log.Info("开始启动流量画像分析服务...")
	log.Infof("Kafka配置: brokers=%v, topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)

	// 初始化存储层 (InfluxDB 和 MySQL)
	store, err := storage.NewStorage(&cfg, log)
	if err != nil {
		log.Fatal("初始化存储层失败:", err)
	}
	defer store.Close()
	log.Info("存储层初始化成功")

	// GeoIP库可选，仅用于告警负载的归属地补充
	var geoIP, asnDB *geoip2.Reader
	if cfg.GeoIP.CityPath != "" {
		if geoIP, err = geoip2.Open(cfg.GeoIP.CityPath); err != nil {
			log.Fatal("初始化GeoIP数据库失败:", err)
		}
		defer geoIP.Close()
	}
	if cfg.GeoIP.ASNPath != "" {
		if asnDB, err = geoip2.Open(cfg.GeoIP.ASNPath); err != nil {
			log.Fatal("初始化ASN数据库失败:", err)
		}
		defer asnDB.Close()
	}

	al := alerter.NewAlerter(cfg.Webhook.URL, geoIP, asnDB, log)

	cons, err := consumer.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.GroupID,
		cfg.Kafka.BatchSize,
		time.Duration(cfg.Kafka.FlushIntervalSeconds)*time.Second,
		cfg.Security.WhitelistIPs,
		pipe,
		store,
		al,
		log,
	)
	if err != nil {
		log.Fatal("初始化Kafka消费者失败:", err)
	}
	defer cons.Close()
	log.Info("Kafka消费者初始化成功")

	// 指标服务
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":2112", nil); err != nil {
			log.Errorf("指标服务启动失败: %v", err)
		}
	}()

	// 优雅退出处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("开始消费topic: %s", cfg.Kafka.Topic)
		if err := cons.Start(cfg.Kafka.Topic); err != nil {
			log.Errorf("Kafka消费启动失败: %v", err)
			sigChan <- syscall.SIGTERM
			return
		}
	}()

	log.Info("服务启动完成，等待消息...")

	sig := <-sigChan
	log.Infof("接收到信号 %v, 开始优雅退出", sig)
}

// runFile 一次性分析：逐行解析JSON记录，跑完整条管线并输出报告JSON
func runFile(pipe *pipeline.Pipeline, path string, log *zap.SugaredLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var entries []models.LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry models.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			log.Warnf("解析日志行失败，已跳过: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	out, err := pipe.Run(entries)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
