package seat

import (
	"errors"
	"strings"
)

// エラー種別。呼び出し側は errors.Is で判定する
var (
	ErrNotFound   = errors.New("not_found")
	ErrValidation = errors.New("validation")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal")
)

// Error は座席操作のエラー
// Kind で種別を、SeatIDs / SeatNumbers で対象座席を示す
type Error struct {
	Kind        error
	Message     string
	SeatIDs     []string
	SeatNumbers []string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	switch {
	case len(e.SeatNumbers) > 0:
		b.WriteString(": ")
		b.WriteString(strings.Join(e.SeatNumbers, ", "))
	case len(e.SeatIDs) > 0:
		b.WriteString(": ")
		b.WriteString(strings.Join(e.SeatIDs, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is は種別とメッセージが同じ *Error を同一とみなす
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

// WithSeats は対象座席を付与したコピーを返す
func (e *Error) WithSeats(ids, numbers []string) *Error {
	c := *e
	c.SeatIDs = ids
	c.SeatNumbers = numbers
	return &c
}

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound        = &Error{Kind: ErrNotFound, Message: "座席が見つかりません"}
	ErrSeatNotAvailable    = &Error{Kind: ErrConflict, Message: "座席は予約できません"}
	ErrSeatNotReserved     = &Error{Kind: ErrConflict, Message: "座席は仮押さえされていません"}
	ErrSeatNotBlocked      = &Error{Kind: ErrConflict, Message: "座席は販売停止されていません"}
	ErrSeatNotReleasable   = &Error{Kind: ErrConflict, Message: "座席は解放できません"}
	ErrHolderMismatch      = &Error{Kind: ErrConflict, Message: "座席の仮押さえユーザーが一致しません"}
	ErrDuplicateSeatNumber = &Error{Kind: ErrConflict, Message: "座席番号が既に登録されています"}
	ErrSeatIDsRequired     = &Error{Kind: ErrValidation, Message: "座席IDは必須です"}
	ErrDuplicateSeatIDs    = &Error{Kind: ErrValidation, Message: "座席IDが重複しています"}
	ErrEventMismatch       = &Error{Kind: ErrValidation, Message: "座席が指定イベントに属していません"}
	ErrEventIDRequired     = &Error{Kind: ErrValidation, Message: "イベントIDは必須です"}
	ErrHolderIDRequired    = &Error{Kind: ErrValidation, Message: "ユーザーIDは必須です"}
	ErrOrderIDRequired     = &Error{Kind: ErrValidation, Message: "注文IDは必須です"}
	ErrSeatNumberRequired  = &Error{Kind: ErrValidation, Message: "座席番号は必須です"}
	ErrInvalidPrice        = &Error{Kind: ErrValidation, Message: "価格は0以上である必要があります"}
	ErrInvalidCategory     = &Error{Kind: ErrValidation, Message: "座席種別が不正です"}
	ErrVersionConflict     = &Error{Kind: ErrInternal, Message: "座席のバージョンが一致しません"}
	ErrLockNotAcquired     = &Error{Kind: ErrInternal, Message: "座席ロックを取得できませんでした"}
	ErrInconsistentStorage = &Error{Kind: ErrInternal, Message: "ストレージの状態が不正です"}
)

// Validation は入力不正エラーを作成する
func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// Internal はインフラ起因のエラーを作成する
func Internal(msg string, cause error) *Error {
	return &Error{Kind: ErrInternal, Message: msg, Err: cause}
}

// KindOf はエラー種別を返す。種別が付いていないエラーは ErrInternal とみなす
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrValidation, ErrConflict, ErrInternal} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}
