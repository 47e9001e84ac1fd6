package tools

import (
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SendExcel 将内存中的 excel 文件作为附件写回客户端
func SendExcel(c *gin.Context, f *excelize.File, displayName string) error {
	escaped := url.PathEscape(displayName)

	c.Header("Content-Type", ExcelContentType)
	c.Header(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped),
	)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	c.Data(200, ExcelContentType, buf.Bytes())
	return nil
}
