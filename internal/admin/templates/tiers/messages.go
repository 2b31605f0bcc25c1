package tiers

import (
	"errors"
	"fmt"

	admintiers "finitefield.org/delivery-admin/internal/tiers"
)

var fieldNames = map[string]string{
	admintiers.FieldLabel:   "ラベル",
	admintiers.FieldMin:     "下限",
	admintiers.FieldMax:     "上限",
	admintiers.FieldBase:    "基本料金",
	admintiers.FieldPerUnit: "単価",
}

// FieldMessage translates a validation failure for display next to its field.
func FieldMessage(fe admintiers.FieldError) string {
	switch fe.Code {
	case admintiers.CodeRequired:
		return fmt.Sprintf("%sを入力してください。", fieldName(fe.Field))
	case admintiers.CodeNotANumber:
		return fmt.Sprintf("%sは数値で入力してください。", fieldName(fe.Field))
	case admintiers.CodeNegative:
		return fmt.Sprintf("%sは 0 以上にしてください。", fieldName(fe.Field))
	case admintiers.CodeMaxNotAboveMin:
		return "上限は下限より大きい値にしてください。"
	case admintiers.CodeOverlap:
		return fmt.Sprintf("「%s」の範囲と重なっています。", fe.ConflictLabel)
	case admintiers.CodeUnboundedTaken:
		return fmt.Sprintf("上限なしの範囲は「%s」で設定済みです。", fe.ConflictLabel)
	case admintiers.CodeDuplicateMin:
		return fmt.Sprintf("下限が「%s」と同じです。", fe.ConflictLabel)
	default:
		return fe.Message
	}
}

// ErrorMessage is the toast text for a failed operation.
func ErrorMessage(err error) string {
	var (
		verr     *admintiers.ValidationError
		lastRule *admintiers.LastRuleError
		remote   *admintiers.RemoteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		if len(verr.Errors) > 0 {
			return FieldMessage(verr.Errors[0])
		}
		return "入力内容を確認してください。"
	case errors.As(err, &lastRule):
		return "最後の有効なルールは削除・無効化できません。"
	case errors.As(err, &remote):
		return remote.UserMessage()
	case errors.Is(err, admintiers.ErrRangeNotFound):
		return "対象のルールが見つかりません。他の管理者が削除した可能性があります。"
	case errors.Is(err, admintiers.ErrUnknownCategory):
		return "不明な料金区分です。"
	default:
		return "処理に失敗しました。時間をおいて再試行してください。"
	}
}

func fieldName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
