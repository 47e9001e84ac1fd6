package tools

import (
	"fmt"
	"reflect"
	"time"

	"github.com/xuri/excelize/v2"
)

const excelTimeLayout = "2006-01-02 15:04"

type excelColumn struct {
	index  []int
	header string
}

// excelColumns 收集结构体中可导出的列，表头取 excel 标签，标签为 "-" 的字段跳过
func excelColumns(t reflect.Type, parent []int) []excelColumn {
	var cols []excelColumn
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		idx := append(append([]int(nil), parent...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			cols = append(cols, excelColumns(sf.Type, idx)...)
			continue
		}

		tag := sf.Tag.Get("excel")
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = sf.Name
		}
		cols = append(cols, excelColumn{index: idx, header: tag})
	}
	return cols
}

func excelValue(v reflect.Value) any {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		if t.IsZero() {
			return ""
		}
		return t.Format(excelTimeLayout)
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return v.Interface()
}

// ExportToExcel 把结构体切片写入指定工作表，第一行为加粗表头
func ExportToExcel[T any](f *excelize.File, sheet string, rows []T) error {
	elemType := reflect.TypeOf((*T)(nil)).Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("类型 %s 不是结构体", elemType)
	}

	if sheet == "" {
		sheet = "Sheet1"
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	// 使用自定义表名时去掉默认空表
	if sheet != "Sheet1" {
		if i, _ := f.GetSheetIndex("Sheet1"); i >= 0 {
			if err := f.DeleteSheet("Sheet1"); err != nil {
				return err
			}
		}
	}
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	cols := excelColumns(elemType, nil)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range rows {
		elem := reflect.ValueOf(row)
		if elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				continue
			}
			elem = elem.Elem()
		}
		for i, col := range cols {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, excelValue(elem.FieldByIndex(col.index))); err != nil {
				return err
			}
		}
	}
	return nil
}
