package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/flagx"
	"github.com/dmitrijs2005/lifevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "168h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; its fields are copied into the runtime Config.
// Zero values are skipped so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	CheckSchedule    string         `json:"check_schedule"`
	WorkerCount      int            `json:"worker_count"`
	GracePeriodDays  int            `json:"grace_period_days"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	AppBaseURL       string         `json:"app_base_url"`
	NotifierBackend  string         `json:"notifier_backend"`
	SMTPHost         string         `json:"smtp_host"`
	SMTPPort         int            `json:"smtp_port"`
	SMTPFrom         string         `json:"smtp_from"`
	AMQPURL          string         `json:"amqp_url"`
	AMQPQueue        string         `json:"amqp_queue"`
	SnapshotSecret   string         `json:"snapshot_secret"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	DemoEnabled      bool           `json:"demo_enabled"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path comes from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.CheckSchedule, c.CheckSchedule)
	setInt(&config.WorkerCount, c.WorkerCount)
	setInt(&config.GracePeriodDays, c.GracePeriodDays)
	if c.TokenTTL.Duration != 0 {
		config.TokenTTL = time.Duration(c.TokenTTL.Duration)
	}
	setString(&config.AppBaseURL, c.AppBaseURL)
	setString(&config.NotifierBackend, c.NotifierBackend)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.AMQPQueue, c.AMQPQueue)
	setString(&config.SnapshotSecret, c.SnapshotSecret)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.DemoEnabled {
		config.DemoEnabled = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
