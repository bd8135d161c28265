// Package rule 封装 go-playground/validator，使用 `rule` 标签校验配置结构.
//
// 字段名取 mapstructure 标签，错误信息可直接对应配置键，例如 scheduler.validate_cron.
// 除内置规则外还注册了:
//   - cron: 标准 5 段 cron 表达式
//   - storeroot: 存储根目录，不能为空、根目录或包含 .. 段
//
// 使用独立的 validator 实例，不改动 gin 的 binding 引擎.
package rule

import (
	"errors"
	"path"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var (
	inst *validator.Validate
	once sync.Once
)

func initValidator() {
	inst = validator.New()
	inst.SetTagName("rule")
	inst.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	_ = inst.RegisterValidation("cron", isCron)
	_ = inst.RegisterValidation("storeroot", isStoreRoot)
}

func lazyInit() {
	once.Do(initValidator)
}

func isCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())

	return err == nil
}

func isStoreRoot(fl validator.FieldLevel) bool {
	p := filepath.ToSlash(strings.TrimSpace(fl.Field().String()))
	if p == "" {
		return false
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}

	clean := path.Clean(p)

	return clean != "/" && clean != "."
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidateStruct 对结构体执行完整校验，失败时可用 Errors 转成可读形式.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则校验单个变量，例如 ValidateVar("0 3 * * *", "cron").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// ValidationErrors 配置键 → 可读错误信息.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}

	return strings.Join(parts, "; ")
}

// Errors 把 validator 的错误转成 ValidationErrors，其他错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))

	for _, fe := range verrs {
		key := fe.Namespace()
		// 去掉顶层结构体名
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}

		out[key] = message(fe)
	}

	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "cron":
		return "must be a standard 5-field cron expression"
	case "storeroot":
		return "must be a directory path without '..'"
	default:
		return "failed rule " + fe.Tag()
	}
}
