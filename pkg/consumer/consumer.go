package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"go-fenghuotai/pkg/alerter"
	"go-fenghuotai/pkg/models"
	"go-fenghuotai/pkg/pipeline"
	"go-fenghuotai/pkg/storage"
)

// Consumer 从Kafka读取访问日志并按批触发分析。
// 分析管线本身是纯批量计算，这里负责攒批：缓冲达到batchSize
// 或距上次分析超过flushInterval时，把缓冲整批交给管线。
type Consumer struct {
	group         sarama.ConsumerGroup
	pipeline      *pipeline.Pipeline
	storage       *storage.Storage
	alerter       *alerter.Alerter
	whitelist     *Whitelist
	log           *zap.SugaredLogger
	batchSize     int
	flushInterval time.Duration

	mu  sync.Mutex
	buf []models.LogEntry

	ready chan bool
}

func NewConsumer(brokers []string, groupID string, batchSize int, flushInterval time.Duration,
	whitelistIPs []string, pipe *pipeline.Pipeline, store *storage.Storage,
	al *alerter.Alerter, log *zap.SugaredLogger) (*Consumer, error) {

	config := sarama.NewConfig()
	version, err := sarama.ParseKafkaVersion("2.1.0")
	if err != nil {
		return nil, err
	}
	config.Version = version
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true
	config.Consumer.Group.Session.Timeout = 20 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 6 * time.Second
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	log.Infof("正在连接 Kafka brokers: %v", brokers)
	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:         group,
		pipeline:      pipe,
		storage:       store,
		alerter:       al,
		whitelist:     NewWhitelist(whitelistIPs, log),
		log:           log,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		ready:         make(chan bool),
	}, nil
}

func (c *Consumer) Start(topic string) error {
	topics := []string{topic}
	ctx := context.Background()

	// 定时冲刷，保证低流量时批次也能及时分析
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			c.Flush()
		}
	}()

	c.log.Infof("开始消费 topic: %s", topic)
	for {
		if err := c.group.Consume(ctx, topics, c); err != nil {
			c.log.Errorf("消费出错: %v", err)
			time.Sleep(time.Second * 5)
			continue
		}

		if ctx.Err() != nil {
			c.log.Errorf("上下文被取消: %v", ctx.Err())
			return ctx.Err()
		}

		c.ready = make(chan bool)
	}
}

// Flush 取出当前缓冲并执行一次批量分析
func (c *Consumer) Flush() {
	c.mu.Lock()
	batch := c.buf
	c.buf = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	out, err := c.pipeline.Run(batch)
	if err != nil {
		// 不重试：批量分析不具备重试的幂等安全性，等下一批新数据
		c.log.Errorf("批量分析失败，丢弃本批 %d 条记录: %v", len(batch), err)
		return
	}

	if err := c.storage.SaveRunMetrics(out.Metrics); err != nil {
		c.log.Errorf("保存运行指标失败: %v", err)
	}
	if err := c.storage.SaveAnalysisResults(out.Results, out.Metrics.RunTimestamp); err != nil {
		c.log.Errorf("保存分析结果失败: %v", err)
	}
	if err := c.storage.SaveAnomalyFindings(out.Report.Anomalies, out.Metrics.RunTimestamp); err != nil {
		c.log.Errorf("保存异常发现失败: %v", err)
	}
	if err := c.storage.SaveRecommendations(out.Report.Recommendations, out.Metrics.RunTimestamp); err != nil {
		c.log.Errorf("保存处置建议失败: %v", err)
	}

	c.alerter.HandleFindings(out.Report.Anomalies)
}

// Required methods for sarama.ConsumerGroupHandler interface
func (c *Consumer) Setup(_ sarama.ConsumerGroupSession) error {
	close(c.ready)
	return nil
}

func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			var entry models.LogEntry
			if err := json.Unmarshal(message.Value, &entry); err != nil {
				c.log.Errorf("解析消息失败: %v, raw message: %s", err, string(message.Value))
				session.MarkMessage(message, "")
				continue
			}

			// 白名单地址不进入分析批次
			if c.whitelist.ContainsIP(entry.SourceAddress) {
				c.log.Debugf("地址 %s 在白名单中，跳过", entry.SourceAddress)
				session.MarkMessage(message, "")
				continue
			}

			c.mu.Lock()
			c.buf = append(c.buf, entry)
			full := len(c.buf) >= c.batchSize
			c.mu.Unlock()

			session.MarkMessage(message, "")

			if full {
				c.Flush()
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	c.Flush()
	return c.group.Close()
}
