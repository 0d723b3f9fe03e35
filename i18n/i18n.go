/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var languageMap = map[string]language.Tag{"en": language.English, "zh": language.Chinese}

// Translations of the report strings. English is the key itself.
var zhMessages = []struct {
	en string
	zh string
}{
	{
		en: "Coverity scan succeeded",
		zh: "Coverity 扫描成功",
	},
	{
		en: "Coverity scan failed",
		zh: "Coverity 扫描失败",
	},
	{
		en: "Coverity scan skipped",
		zh: "Coverity 扫描已跳过",
	},
	{
		en: "Coverity scan is running",
		zh: "Coverity 扫描进行中",
	},
	{
		en: "No C/C++ files changed.",
		zh: "没有改动 C/C++ 文件。",
	},
	{
		en: "Failed at step %s: %s",
		zh: "在 %s 步骤失败：%s",
	},
	{
		en: "Skipped: %s",
		zh: "已跳过：%s",
	},
	{
		en: "Changed C/C++ files (%d):",
		zh: "改动的 C/C++ 文件（%d 个）：",
	},
	{
		en: "and %d more",
		zh: "以及其他 %d 个",
	},
	{
		en: "Compilation units captured: %d (%d%%)",
		zh: "已捕获编译单元：%d（%d%%）",
	},
	{
		en: "Submitted build %s to Coverity Scan.",
		zh: "已向 Coverity Scan 提交构建 %s。",
	},
	{
		en: "Upload skipped (dry run).",
		zh: "已跳过上传（试运行）。",
	},
	{
		en: "Outstanding defects: %d, newly detected: %d, fixed: %d",
		zh: "未解决缺陷：%d，新发现：%d，已修复：%d",
	},
	{
		en: "Defect counts are not available yet.",
		zh: "缺陷统计暂不可用。",
	},
	{
		en: "Project page: %s",
		zh: "项目页面：%s",
	},
	{
		en: "Build log: %s",
		zh: "构建日志：%s",
	},
	{
		en: "Quota exceeded: %d/%d builds today, %d/%d this week. Next slot at %s.",
		zh: "超出配额：今日 %d/%d 次构建，本周 %d/%d 次。下次可用时间 %s。",
	},
	{
		en: "%d files scanned, %d units captured",
		zh: "已扫描 %d 个文件，捕获 %d 个编译单元",
	},
	{
		en: "build submitted",
		zh: "构建已提交",
	},
	{
		en: "no C/C++ changes",
		zh: "没有 C/C++ 改动",
	},
	{
		en: "quota exceeded until %s",
		zh: "配额已用尽，直到 %s",
	},
	{
		en: "failed at %s",
		zh: "在 %s 失败",
	},
	{
		en: "Elapsed: %s",
		zh: "耗时：%s",
	},
}

func init() {
	for _, m := range zhMessages {
		if err := message.SetString(language.Chinese, m.en, m.zh); err != nil {
			panic(err)
		}
	}
}

// GetPrinter returns a printer for "en" or "zh". Unknown languages fall
// back to English.
func GetPrinter(lang string) *message.Printer {
	langTag, exist := languageMap[lang]
	if !exist {
		langTag = languageMap["en"]
	}
	return message.NewPrinter(langTag)
}

func Supported(lang string) bool {
	_, exist := languageMap[lang]
	return exist
}
