package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
)

// admin 直接写库创建账号，用于初始化或演示环境。
func main() {
	var (
		email    = flag.String("email", "", "登录邮箱（必填）")
		name     = flag.String("name", "", "显示名称（默认取邮箱前缀）")
		password = flag.String("password", "", "初始密码（留空则随机生成并打印一次）")
		dbHost   = flag.String("db-host", "", "数据库 Host（可选，覆盖 DATABASE_HOST）")
	)
	flag.Parse()

	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" || !strings.Contains(e, "@") {
		log.Fatal("missing or invalid flag: --email")
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		n = e[:strings.Index(e, "@")]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if h := strings.TrimSpace(*dbHost); h != "" {
		cfg.Database.Host = h
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	var existing database.User
	switch err := db.Where("email = ?", e).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", e)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	pw := *password
	generated := pw == ""
	if generated {
		pw, err = generateRandomPassword(18)
		if err != nil {
			log.Fatalf("generate password: %v", err)
		}
	} else if err := auth.ValidatePassword(pw); err != nil {
		log.Fatalf("invalid password: %v", err)
	}

	hashed, err := auth.HashPassword(pw)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Name:         n,
		Email:        e,
		PasswordHash: hashed,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("已创建账号 #%d\n", user.ID)
	fmt.Printf("邮箱: %s\n", e)
	fmt.Printf("名称: %s\n", n)
	if generated {
		fmt.Printf("初始密码: %s\n", pw)
		fmt.Printf("提示：该密码仅显示一次。\n")
	}
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 18
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
