package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"

	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/internal/validator"
	"github.com/yeisme/docvault/pkg/log"
)

// validateItem 报告中的一项，可修复时附带修复地址.
type validateItem struct {
	validator.Finding
	FixURL string `json:"fix_url,omitempty"`
}

// validateResponse 结构校验报告.
type validateResponse struct {
	Findings []validateItem `json:"findings"`
	Count    int            `json:"count"`
	// Errors 无法分类的文档，其余文档照常报告
	Errors []string `json:"errors,omitempty"`
}

// documentErrors 拆出逐文档的分类错误；其他错误返回 false.
func documentErrors(err error) ([]string, bool) {
	if err == nil {
		return nil, true
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil, false
	}

	out := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		out = append(out, e.Error())
	}

	return out, true
}

// ValidateDocuments 校验当前用户可编辑的所有文档.
//
//	@Summary	结构校验报告
//	@Tags		结构校验
//	@Produce	json
//	@Success	200	{object}	validateResponse
//	@Router		/api/v1/validate [get]
func ValidateDocuments(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	findings, err := svc.Validator.Validate(c.Request.Context(), currentUser(c))

	docErrs, ok := documentErrors(err)
	if !ok {
		fail(c, err)

		return
	}

	if len(docErrs) > 0 {
		l := log.Logger()
		l.Warn().Err(err).Int("failed", len(docErrs)).Int("findings", len(findings)).Msg("structure check incomplete")
	}

	items := make([]validateItem, 0, len(findings))
	for i := range findings {
		item := validateItem{Finding: findings[i]}
		if p := findings[i].FixPath(); p != "" {
			item.FixURL = "/api/v1" + p
		}

		items = append(items, item)
	}

	c.JSON(http.StatusOK, validateResponse{Findings: items, Count: len(items), Errors: docErrs})
}

// CorrectDocument 按报告中的参数修复单个问题.
//
//	@Summary	修复结构问题
//	@Tags		结构校验
//	@Produce	json
//	@Param		documentID	path		int	true	"文档 ID"
//	@Param		code		path		int	true	"问题代码"
//	@Param		param		path		int	true	"修复参数"
//	@Success	200			{object}	types.SuccessResponse
//	@Failure	409			{object}	types.ErrorResponse
//	@Failure	422			{object}	types.ErrorResponse
//	@Router		/api/v1/correct/{documentID}/type/{code}/attach/{param} [put]
func CorrectDocument(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "documentID")
	if !ok {
		return
	}

	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		badRequest(c, err)

		return
	}

	// 代码 1、2 的参数为 0
	param, err := strconv.ParseUint(c.Param("param"), 10, 64)
	if err != nil {
		badRequest(c, err)

		return
	}

	if err := svc.Validator.Fix(c.Request.Context(), currentUser(c), id, code, uint(param)); err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}
