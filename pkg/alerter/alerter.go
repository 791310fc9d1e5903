package alerter

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"go-fenghuotai/pkg/models"
)

// Alerter 高风险发现的告警处理器：通过webhook推送，带冷却期去重。
// 配置了GeoIP库时，告警负载附带地址的归属地与ASN信息。
type Alerter struct {
	webhookURL        string
	geoIP             *geoip2.Reader
	asnDB             *geoip2.Reader
	log               *zap.SugaredLogger
	alertHistory      map[string]time.Time // 源地址 -> 最后告警时间
	alertHistoryMu    sync.RWMutex
	alertCooldownTime time.Duration
}

func NewAlerter(webhookURL string, geoIP, asnDB *geoip2.Reader, log *zap.SugaredLogger) *Alerter {
	a := &Alerter{
		webhookURL:        webhookURL,
		geoIP:             geoIP,
		asnDB:             asnDB,
		log:               log,
		alertHistory:      make(map[string]time.Time),
		alertCooldownTime: 1 * time.Hour,
	}

	// 定时清理过期的冷却记录
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			a.CleanupOldHistory()
		}
	}()

	return a
}

// HandleFindings 对一批异常发现触发告警，仅高风险等级会推送
func (a *Alerter) HandleFindings(findings []models.AnomalyFinding) {
	for _, f := range findings {
		if f.RiskLevel != models.RiskHigh {
			continue
		}
		if err := a.TriggerAlert(f); err != nil {
			a.log.Errorf("触发告警失败: source_address=%s, error=%v", f.SourceAddress, err)
		}
	}
}

// TriggerAlert 触发单条告警，冷却期内的地址跳过
func (a *Alerter) TriggerAlert(finding models.AnomalyFinding) error {
	a.alertHistoryMu.RLock()
	lastAlertTime, exists := a.alertHistory[finding.SourceAddress]
	a.alertHistoryMu.RUnlock()

	now := time.Now()
	if exists && now.Sub(lastAlertTime) < a.alertCooldownTime {
		a.log.Infof("地址 %s 在冷却期内，跳过告警", finding.SourceAddress)
		return nil
	}

	if err := a.sendAlertNotification(finding); err != nil {
		return err
	}

	a.alertHistoryMu.Lock()
	a.alertHistory[finding.SourceAddress] = now
	a.alertHistoryMu.Unlock()

	a.log.Infof("成功触发告警: source_address=%s, risk_level=%s", finding.SourceAddress, finding.RiskLevel)
	return nil
}

type alertPayload struct {
	Timestamp          time.Time `json:"timestamp"`
	SourceAddress      string    `json:"source_address"`
	RequestCount       int       `json:"request_count"`
	RiskLevel          string    `json:"risk_level"`
	UnusualPatternTags []string  `json:"unusual_pattern_tags"`
	Country            string    `json:"country,omitempty"`
	City               string    `json:"city,omitempty"`
	ASNOrg             string    `json:"asn_org,omitempty"`
	ASNNumber          uint      `json:"asn_number,omitempty"`
}

func (a *Alerter) sendAlertNotification(finding models.AnomalyFinding) error {
	payload := alertPayload{
		Timestamp:          time.Now(),
		SourceAddress:      finding.SourceAddress,
		RequestCount:       finding.RequestCount,
		RiskLevel:          finding.RiskLevel,
		UnusualPatternTags: finding.UnusualPatternTags,
	}
	a.enrichGeo(&payload)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(a.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

// enrichGeo 附加归属地与ASN信息，库未配置或查询失败时保持为空
func (a *Alerter) enrichGeo(payload *alertPayload) {
	ip := net.ParseIP(payload.SourceAddress)
	if ip == nil {
		return
	}

	if a.geoIP != nil {
		city, err := a.geoIP.City(ip)
		if err != nil {
			a.log.Errorf("GeoIP查询失败: %v", err)
		} else {
			payload.Country = city.Country.IsoCode
			payload.City = city.City.Names["en"]
		}
	}

	if a.asnDB != nil {
		asn, err := a.asnDB.ASN(ip)
		if err != nil {
			a.log.Errorf("ASN查询失败: %v", err)
		} else {
			payload.ASNOrg = asn.AutonomousSystemOrganization
			payload.ASNNumber = asn.AutonomousSystemNumber
		}
	}
}

// CleanupOldHistory 清理过期的告警历史
func (a *Alerter) CleanupOldHistory() {
	a.alertHistoryMu.Lock()
	defer a.alertHistoryMu.Unlock()

	now := time.Now()
	for addr, lastAlertTime := range a.alertHistory {
		if now.Sub(lastAlertTime) > a.alertCooldownTime {
			delete(a.alertHistory, addr)
		}
	}
}
