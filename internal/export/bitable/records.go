package bitable

import (
	"time"

	"harvest/internal/articles"
	"harvest/internal/articles/db"
	"harvest/lib/chrono"
)

// field types of the bitable api
const (
	FieldText         = 1
	FieldNumber       = 2
	FieldSingleSelect = 3
	FieldDate         = 5
	FieldLink         = 15
)

type Description struct {
	Text string `json:"text"`
}

type Field struct {
	Name        string         `json:"field_name"`
	Type        int            `json:"type"`
	Property    map[string]any `json:"property,omitempty"`
	Description *Description   `json:"description,omitempty"`
}

type Link struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

type Record struct {
	Fields map[string]any `json:"fields"`
}

const (
	DefaultTableName = "精华文章"
	DefaultAuthor    = "佚名"
	DefaultSummary   = "暂无AI摘要"
)

// ArticleFields is the layout of the exported table. The trailing reading
// fields are left for readers to fill in.
var ArticleFields = []Field{
	{Name: "序号", Type: FieldNumber, Property: map[string]any{"formatter": "0"}},
	{Name: "文章ID", Type: FieldText},
	{Name: "作者", Type: FieldText},
	{Name: "创建时间", Type: FieldText},
	{Name: "筛选时间", Type: FieldText},
	{Name: "AI摘要", Type: FieldText, Description: &Description{Text: "文章的AI生成摘要"}},
	{Name: "原文链接", Type: FieldLink, Description: &Description{Text: "指向原始文章的链接"}},
	{Name: "当前用户", Type: FieldText, Description: &Description{Text: "正在阅读此文章的用户"}},
	{Name: "是否已读", Type: FieldSingleSelect, Property: map[string]any{
		"options": []map[string]string{{"name": "是"}, {"name": "否"}},
	}},
	{Name: "阅读时间", Type: FieldDate},
	{Name: "阅读摘要", Type: FieldText, Description: &Description{Text: "用户的阅读笔记"}},
}

// BuildRecords renders stored articles as table records, numbered from 1
// in the given order.
func BuildRecords(rows []db.Article, loc *time.Location) []Record {
	records := make([]Record, len(rows))
	for i, row := range rows {
		author := row.AuthorName
		if author == "" {
			author = DefaultAuthor
		}
		summary := row.AiSummaryContent
		if summary == "" {
			summary = DefaultSummary
		}
		link := articles.LinkBase + row.ArticleID

		records[i] = Record{Fields: map[string]any{
			"序号":   i + 1,
			"文章ID": row.ArticleID,
			"作者":   author,
			"创建时间": chrono.Format(row.GmtCreate, "2006/01/02", loc),
			"筛选时间": chrono.Format(row.GmtCreate, "2006-01", loc),
			"AI摘要": summary,
			"原文链接": Link{Text: link, Link: link},
			"是否已读": "否",
		}}
	}
	return records
}
