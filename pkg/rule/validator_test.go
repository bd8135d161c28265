package rule_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/rule"
)

type schedulerSection struct {
	ValidateCron string `mapstructure:"validate_cron" rule:"omitempty,cron"`
	Retention    int    `mapstructure:"trash_retention_days" rule:"min=1"`
}

type documentSection struct {
	Root    string `mapstructure:"root"    rule:"storeroot"`
	Backend string `mapstructure:"backend" rule:"oneof=local memory s3"`
}

type appSection struct {
	Scheduler schedulerSection `mapstructure:"scheduler"`
	Document  documentSection  `mapstructure:"document"`
}

func TestCron(t *testing.T) {
	for _, expr := range []string{"0 3 * * *", "*/15 * * * *", "30 3 * * 1-5"} {
		assert.NoError(t, rule.ValidateVar(expr, "cron"), expr)
	}

	for _, expr := range []string{"", "daily", "0 3 * *", "61 * * * *"} {
		assert.Error(t, rule.ValidateVar(expr, "cron"), expr)
	}
}

func TestStoreRoot(t *testing.T) {
	for _, p := range []string{"data/documents", "/srv/docvault/uploads", "./docs", `C:\vault\docs`} {
		assert.NoError(t, rule.ValidateVar(p, "storeroot"), p)
	}

	for _, p := range []string{"", "/", ".", "data/../etc", "../docs"} {
		assert.Error(t, rule.ValidateVar(p, "storeroot"), p)
	}
}

func TestErrorsUseConfigKeys(t *testing.T) {
	cfg := appSection{
		Scheduler: schedulerSection{ValidateCron: "nightly", Retention: 0},
		Document:  documentSection{Root: "../docs", Backend: "ftp"},
	}

	err := rule.ValidateStruct(cfg)
	require.Error(t, err)

	errs := rule.Errors(err)
	assert.Equal(t, rule.ValidationErrors{
		"scheduler.validate_cron":        "must be a standard 5-field cron expression",
		"scheduler.trash_retention_days": "must be at least 1",
		"document.root":                  "must be a directory path without '..'",
		"document.backend":               "must be one of: local memory s3",
	}, errs)

	msg := errs.Error()
	assert.True(t, strings.HasPrefix(msg, "document.backend: "), msg)

	assert.Nil(t, rule.Errors(errors.New("read config: permission denied")))
}

func TestValidStructPasses(t *testing.T) {
	cfg := appSection{
		Scheduler: schedulerSection{Retention: 30},
		Document:  documentSection{Root: "data/documents", Backend: "local"},
	}

	assert.NoError(t, rule.ValidateStruct(cfg))
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, rule.RegisterValidation("slug_safe", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "/?#")
	}))

	assert.NoError(t, rule.ValidateVar("q3-report", "slug_safe"))
	assert.Error(t, rule.ValidateVar("q3/report", "slug_safe"))
}

// binding 标签仍由 gin 的引擎处理.
func TestGinBindingUntouched(t *testing.T) {
	_ = rule.Engine()

	type form struct {
		Status string `binding:"oneof=draft published"`
	}

	assert.Error(t, binding.Validator.ValidateStruct(form{Status: "archived"}))
	assert.NoError(t, binding.Validator.ValidateStruct(form{Status: "draft"}))
}
