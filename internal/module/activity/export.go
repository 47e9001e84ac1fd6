package activity

import (
	"fmt"
	"time"

	"meetup-backend/internal/global/response"
	"meetup-backend/tools"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type exportRow struct {
	ParticipantView
	Exported time.Time `excel:"导出时间"`
}

// ExportParticipants 发起人导出参与者名单
func ExportParticipants(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	a, list, err := service.ExportParticipants(c.Request.Context(), hostID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}

	now := time.Now()
	rows := make([]exportRow, 0, len(list))
	for _, p := range list {
		rows = append(rows, exportRow{ParticipantView: p, Exported: now})
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := tools.ExportToExcel(f, "参与者", rows); err != nil {
		log.Error("生成参与者表格失败", "error", err, "activity_id", id)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	name := fmt.Sprintf("活动%d参与者_%s.xlsx", a.ID, a.Date.Format("20060102"))
	if err := tools.SendExcel(c, f, name); err != nil {
		log.Error("发送参与者表格失败", "error", err, "activity_id", id)
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
	}
}
