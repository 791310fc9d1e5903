package config

import (
	"github.com/spf13/viper"

	"go-fenghuotai/pkg/models"
)

type Config struct {
	Analysis struct {
		WindowSizesMinutes       []int   `mapstructure:"window_sizes_minutes"`
		OutlierFraction          float64 `mapstructure:"outlier_fraction"`
		ClusterRadius            float64 `mapstructure:"cluster_radius"`
		ClusterMinSamples        int     `mapstructure:"cluster_min_samples"`
		HighFreqStddevMultiplier float64 `mapstructure:"high_frequency_stddev_multiplier"`
		Seed                     int64   `mapstructure:"seed"`
	} `mapstructure:"analysis"`
	Kafka struct {
		Brokers              []string
		Topic                string
		GroupID              string `mapstructure:"group_id"`
		BatchSize            int    `mapstructure:"batch_size"`
		FlushIntervalSeconds int    `mapstructure:"flush_interval_seconds"`
	}
	InfluxDB struct {
		URL    string
		Token  string
		Org    string
		Bucket string
	}
	MySQL struct {
		DSN     string
		MaxIdle int
		MaxOpen int
	}
	GeoIP struct {
		CityPath string `mapstructure:"city_path"`
		ASNPath  string `mapstructure:"asn_path"`
	}
	Webhook struct {
		URL string
	}
	Log struct {
		Level string
		Path  string
	}
	Security struct {
		WhitelistIPs []string `mapstructure:"whitelist_ips"`
	} `mapstructure:"Security"`
}

var GlobalConfig Config

func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("config")

	// 分析参数默认值，配置文件可覆盖
	def := models.DefaultParams()
	viper.SetDefault("analysis.window_sizes_minutes", def.WindowSizesMinutes)
	viper.SetDefault("analysis.outlier_fraction", def.OutlierFraction)
	viper.SetDefault("analysis.cluster_radius", def.ClusterRadius)
	viper.SetDefault("analysis.cluster_min_samples", def.ClusterMinSamples)
	viper.SetDefault("analysis.high_frequency_stddev_multiplier", def.HighFreqStddevMultiplier)
	viper.SetDefault("analysis.seed", def.Seed)
	viper.SetDefault("kafka.batch_size", 5000)
	viper.SetDefault("kafka.flush_interval_seconds", 60)

	if err := viper.ReadInConfig(); err != nil {
		return err
	}

	return viper.Unmarshal(&GlobalConfig)
}

// AnalysisParams 把配置映射为管线参数，未配置的字段落回默认值
func (c *Config) AnalysisParams() models.AnalysisParams {
	p := models.DefaultParams()
	if len(c.Analysis.WindowSizesMinutes) > 0 {
		p.WindowSizesMinutes = c.Analysis.WindowSizesMinutes
	}
	if c.Analysis.OutlierFraction > 0 {
		p.OutlierFraction = c.Analysis.OutlierFraction
	}
	if c.Analysis.ClusterRadius > 0 {
		p.ClusterRadius = c.Analysis.ClusterRadius
	}
	if c.Analysis.ClusterMinSamples > 0 {
		p.ClusterMinSamples = c.Analysis.ClusterMinSamples
	}
	if c.Analysis.HighFreqStddevMultiplier > 0 {
		p.HighFreqStddevMultiplier = c.Analysis.HighFreqStddevMultiplier
	}
	if c.Analysis.Seed != 0 {
		p.Seed = c.Analysis.Seed
	}
	return p
}
