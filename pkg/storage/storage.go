package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/go-sql-driver/mysql"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"go-fenghuotai/pkg/config"
	"go-fenghuotai/pkg/models"
)

// Storage 分析产出的落盘层：时序数据进InfluxDB，异常发现和建议进MySQL。
// 纯写入端，分析管线从不回读。
type Storage struct {
	influxClient influxdb2.Client
	writeAPI     api.WriteAPIBlocking
	mysqlDB      *sql.DB
	log          *zap.SugaredLogger
	org          string
	bucket       string
}

func NewStorage(cfg *config.Config, log *zap.SugaredLogger) (*Storage, error) {
	influxClient := influxdb2.NewClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token)
	writeAPI := influxClient.WriteAPIBlocking(cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)

	mysqlDB, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}

	mysqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdle)
	mysqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpen)

	return &Storage{
		influxClient: influxClient,
		writeAPI:     writeAPI,
		mysqlDB:      mysqlDB,
		log:          log,
		org:          cfg.InfluxDB.Org,
		bucket:       cfg.InfluxDB.Bucket,
	}, nil
}

// SaveRunMetrics 保存单次运行的汇总指标到 InfluxDB
func (s *Storage) SaveRunMetrics(m models.RunMetrics) error {
	p := influxdb2.NewPoint(
		"analysis_run",
		nil,
		map[string]interface{}{
			"total_addresses": m.TotalAddresses,
			"outlier_count":   m.OutlierCount,
			"cluster_count":   m.ClusterCount,
			"noise_count":     m.NoiseCount,
		},
		m.RunTimestamp,
	)

	if err := s.writeAPI.WritePoint(context.Background(), p); err != nil {
		s.log.Errorf("保存运行指标失败: %v", err)
		return err
	}
	return nil
}

// SaveAnalysisResults 按地址保存特征与标签到 InfluxDB
func (s *Storage) SaveAnalysisResults(results []models.AnalysisResult, runTimestamp time.Time) error {
	for _, r := range results {
		p := influxdb2.NewPoint(
			"address_features",
			map[string]string{
				"source_address": r.SourceAddress,
				"outlier_label":  r.OutlierLabel,
			},
			map[string]interface{}{
				"request_count":             r.RequestCount,
				"avg_inter_arrival_seconds": r.AvgInterArrivalSeconds,
				"unique_path_ratio":         r.UniquePathRatio,
				"error_ratio":               r.ErrorRatio,
				"mean_bytes_transferred":    r.MeanBytesTransferred,
				"distinct_user_agent_count": r.DistinctUserAgentCount,
				"cluster_label":             r.ClusterLabel,
			},
			runTimestamp,
		)
		if err := s.writeAPI.WritePoint(context.Background(), p); err != nil {
			s.log.Errorf("保存地址特征失败: source_address=%s, error=%v", r.SourceAddress, err)
			return err
		}
	}
	return nil
}

// SaveAnomalyFindings 保存异常发现到 MySQL
func (s *Storage) SaveAnomalyFindings(findings []models.AnomalyFinding, runTimestamp time.Time) error {
	query := `
        INSERT INTO anomaly_findings (
            source_address, request_count, pattern_tags,
            risk_level, run_timestamp, created_at
        ) VALUES (?, ?, ?, ?, ?, NOW())
    `

	for _, f := range findings {
		tagsJSON, err := json.Marshal(f.UnusualPatternTags)
		if err != nil {
			s.log.Errorf("标签序列化失败: %v", err)
			return err
		}

		_, err = s.mysqlDB.Exec(query,
			f.SourceAddress,
			f.RequestCount,
			tagsJSON,
			f.RiskLevel,
			runTimestamp,
		)
		if err != nil {
			s.log.Errorf("保存异常发现失败: source_address=%s, error=%v", f.SourceAddress, err)
			return err
		}
	}

	s.log.Infof("成功保存 %d 条异常发现", len(findings))
	return nil
}

// SaveRecommendations 保存批次级处置建议到 MySQL
func (s *Storage) SaveRecommendations(recommendations []string, runTimestamp time.Time) error {
	if len(recommendations) == 0 {
		return nil
	}

	recsJSON, err := json.Marshal(recommendations)
	if err != nil {
		s.log.Errorf("建议序列化失败: %v", err)
		return err
	}

	query := `
        INSERT INTO batch_recommendations (
            recommendations, run_timestamp, created_at
        ) VALUES (?, ?, NOW())
    `

	if _, err := s.mysqlDB.Exec(query, recsJSON, runTimestamp); err != nil {
		s.log.Errorf("保存处置建议失败: %v", err)
		return err
	}
	return nil
}

func (s *Storage) Close() {
	s.influxClient.Close()
	s.mysqlDB.Close()
}
