package cdp

import (
	"context"
	"fmt"
	"strconv"

	"opushelper/pkg/domain"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/tidwall/gjson"
)

// evaluate 在页面中执行表达式并按值返回结果
func evaluate(ctx context.Context, c *cdp.Client, expr string) (gjson.Result, error) {
	reply, err := c.Runtime.Evaluate(ctx, runtime.NewEvaluateArgs(expr).SetReturnByValue(true))
	if err != nil {
		return gjson.Result{}, err
	}
	if reply.ExceptionDetails != nil {
		return gjson.Result{}, exceptionError(reply.ExceptionDetails)
	}
	return gjson.ParseBytes(reply.Result.Value), nil
}

// exceptionError 将页面异常转换为 error
func exceptionError(d *runtime.ExceptionDetails) error {
	msg := d.Text
	if d.Exception != nil && d.Exception.Description != nil {
		msg = *d.Exception.Description
	}
	return fmt.Errorf("%w: %s", domain.ErrEvaluateFailed, msg)
}

// globalDefinedExpr 判断 window 上是否存在指定全局对象
func globalDefinedExpr(name string) string {
	return "typeof window[" + strconv.Quote(name) + "] !== 'undefined'"
}
