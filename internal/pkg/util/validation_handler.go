package util

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// 错误信息里使用请求中的参数名
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// ValidateDTO 只返回第一个校验失败的字段
func ValidateDTO(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return errors.New(describe(vErrs[0]))
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("参数 [%s] 不能为空", fe.Field())
	case "max", "lte":
		return fmt.Sprintf("参数 [%s] 不能大于 %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("参数 [%s] 不能小于 %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("参数 [%s] 必须大于 %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("字段 [%s] 校验失败，规则 [%s]", fe.Field(), fe.Tag())
	}
}
