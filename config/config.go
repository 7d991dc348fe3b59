package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// MT5Config 网关登录信息
type MT5Config struct {
	Login    int64  `toml:"login" validate:"required,gt=0"`
	Password string `toml:"password" validate:"required"`
	Server   string `toml:"server" validate:"required"`
	// BridgeURL MT5 桥接终端的 REST 地址
	BridgeURL string `toml:"bridge_url" validate:"required,url"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Listen string `toml:"listen"`
	Debug  bool   `toml:"debug"`
	LogDir string `toml:"log_dir"`
}

// TradingConfig 下单参数
type TradingConfig struct {
	StopLossPips   float64 `toml:"stop_loss_pips" validate:"gt=0"`
	TakeProfitPips float64 `toml:"take_profit_pips" validate:"gt=0"`
	MagicNumber    int     `toml:"magic_number" validate:"gt=0"`
	// Deviation 开仓允许滑点（点数）
	Deviation int `toml:"deviation" validate:"gte=0"`
	// CloseDeviation 平仓允许滑点，需比开仓更宽松，避免平仓因报价偏移失败
	CloseDeviation int `toml:"close_deviation" validate:"gte=0"`
}

// TradingHoursConfig 交易时段闸门
// 周六周日恒定休市；维护时段 [MaintStartHour, MaintEndHour) 内禁止开仓
type TradingHoursConfig struct {
	Timezone       string `toml:"timezone" validate:"required"`
	MaintStartHour int    `toml:"maint_start_hour" validate:"gte=0,lte=23"`
	MaintEndHour   int    `toml:"maint_end_hour" validate:"gte=0,lte=24"`
}

// RetryConfig 网关调用重试策略
type RetryConfig struct {
	MaxAttempts  int `toml:"max_attempts" validate:"gte=1"`
	DelaySeconds int `toml:"delay_seconds" validate:"gte=0"`
	// RetryableRetcodes 视为瞬时失败的网关返回码，默认只含重新报价一族
	// 想还原"任何拒单都重试"的粗放行为，把所有返回码都列进来即可
	RetryableRetcodes []int `toml:"retryable_retcodes"`
}

func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

// DynamicSLTPConfig 止损止盈策略选择
type DynamicSLTPConfig struct {
	// Type 全局策略: fixed | trailing | atr | ma
	Type string `toml:"type" validate:"oneof=fixed trailing atr ma"`
	// Symbols 按品种覆盖全局策略
	Symbols map[string]string `toml:"symbols"`
	// Periods 指标窗口（ATR/SMA/历史K线根数）
	Periods int `toml:"periods" validate:"gte=2"`
	// TrailingDistance 跟踪止损距离（价格单位）
	TrailingDistance float64 `toml:"trailing_distance" validate:"gte=0"`
	// MAOffset 均线策略相对锚点的固定偏移（价格单位）
	MAOffset float64 `toml:"ma_offset" validate:"gte=0"`
	// IntervalSeconds 持仓巡检周期，0 表示不启动巡检
	IntervalSeconds int `toml:"interval_seconds" validate:"gte=0"`
}

func (d DynamicSLTPConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// StrategyFor 返回品种生效的策略类型
func (d DynamicSLTPConfig) StrategyFor(symbol string) string {
	if s, ok := d.Symbols[symbol]; ok {
		return s
	}
	return d.Type
}

// TelegramConfig 可选的执行结果通知
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  int64  `toml:"chat_id"`
}

// Config 进程配置，启动时加载一次
type Config struct {
	MT5          MT5Config          `toml:"mt5"`
	Server       ServerConfig       `toml:"server"`
	Trading      TradingConfig      `toml:"trading"`
	TradingHours TradingHoursConfig `toml:"trading_hours"`
	Retry        RetryConfig        `toml:"retry"`
	DynamicSLTP  DynamicSLTPConfig  `toml:"DynamicSLTP"`
	Telegram     TelegramConfig     `toml:"telegram"`
}

// Default 返回带默认值的配置
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen: ":8099",
			LogDir: "logs",
		},
		Trading: TradingConfig{
			StopLossPips:   50,
			TakeProfitPips: 100,
			MagicNumber:    234000,
			Deviation:      20,
			CloseDeviation: 30,
		},
		TradingHours: TradingHoursConfig{
			Timezone:       "Asia/Shanghai",
			MaintStartHour: 6,
			MaintEndHour:   7,
		},
		Retry: RetryConfig{
			MaxAttempts:       5,
			DelaySeconds:      1,
			RetryableRetcodes: []int{10004, 10012, 10020, 10021},
		},
		DynamicSLTP: DynamicSLTPConfig{
			Type:             "fixed",
			Periods:          14,
			TrailingDistance: 0,
			IntervalSeconds:  60,
		},
	}
}

// Load 读取 TOML 配置文件并应用环境变量覆盖
// 环境变量优先于文件，敏感项（登录凭证）建议只放 .env
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("配置校验失败: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MT5_LOGIN"); v != "" {
		if login, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MT5.Login = login
		}
	}
	if v := os.Getenv("MT5_PASSWORD"); v != "" {
		c.MT5.Password = v
	}
	if v := os.Getenv("MT5_SERVER"); v != "" {
		c.MT5.Server = v
	}
	if v := os.Getenv("MT5_BRIDGE_URL"); v != "" {
		c.MT5.BridgeURL = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}
