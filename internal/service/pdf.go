package service

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// imageTypeByExt 将文件扩展名映射为 fpdf 的图片类型标识
func imageTypeByExt(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "JPG", nil
	case ".png":
		return "PNG", nil
	case ".gif":
		return "GIF", nil
	default:
		return "", NewInvalidFileError(fmt.Sprintf("不支持的图片格式: %s", filepath.Ext(name)))
	}
}

// pdfImage 参与合并的单张图片
type pdfImage struct {
	Name   string
	Reader io.Reader
}

// buildPDF 将图片按提交顺序合并为 PDF，每张图片占一页
// 页面尺寸跟随图片尺寸，返回 PDF 字节与页数
func buildPDF(images []pdfImage) ([]byte, int, error) {
	if len(images) == 0 {
		return nil, 0, NewInvalidFileError("没有可合并的图片")
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: 595.28, Ht: 841.89}, // A4 兜底
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, img := range images {
		imgType, err := imageTypeByExt(img.Name)
		if err != nil {
			return nil, 0, err
		}

		opt := fpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
		key := fmt.Sprintf("page-%d", i)
		info := pdf.RegisterImageOptionsReader(key, opt, img.Reader)
		if pdf.Err() {
			return nil, 0, NewInvalidFileError(fmt.Sprintf("读取图片失败: %s", img.Name))
		}

		w, h := info.Extent()
		if w <= 0 || h <= 0 {
			return nil, 0, NewInvalidFileError(fmt.Sprintf("图片尺寸无效: %s", img.Name))
		}

		orientation := "P"
		if w > h {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, fpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(key, 0, 0, w, h, false, opt, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("生成 PDF 失败: %w", err)
	}
	return buf.Bytes(), pdf.PageCount(), nil
}
