package tools

import (
	"golang.org/x/crypto/bcrypt"
)

func PanicOnErr(err error) {
	if err != nil {
		panic(err)
	}
}

// PasswordEncrypt 使用 bcrypt 生成密码哈希
func PasswordEncrypt(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	PanicOnErr(err)
	return string(hash)
}

// PasswordCompare 校验明文密码与哈希是否匹配
func PasswordCompare(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
