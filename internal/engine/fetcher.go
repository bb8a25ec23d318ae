package engine

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// StaticFetcher 静态页面抓取器(使用Colly)
// 实现PageFetchPort: 每次调用是一次不透明的同步抓取,
// 结果二元(响应体或*models.FetchError)
type StaticFetcher struct {
	base    *colly.Collector
	timeout time.Duration

	// HTTP头部提供者
	headerProvider models.HeaderProvider
}

// NewStaticFetcher 创建静态抓取器
// 禁用TLS证书验证,允许访问证书配置不规范的新闻站点
func NewStaticFetcher(timeout time.Duration, headerProvider models.HeaderProvider) *StaticFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // 跳过证书验证
			},
		},
		Timeout: timeout,
	}

	// 分页遍历会按页码逐次请求,同一落地页可能重复访问
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	c.SetClient(httpClient)
	c.SetRequestTimeout(timeout)
	c.WithTransport(httpClient.Transport)

	utils.Debugf("静态抓取器: HTTP超时=%v, TLS证书验证已禁用", timeout)

	return &StaticFetcher{
		base:           c,
		timeout:        timeout,
		headerProvider: headerProvider,
	}
}

// Fetch 抓取目标URL,实现PageFetchPort
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureNetwork, Cause: err}
	}

	c := f.base.Clone()

	var (
		body       []byte
		statusCode int
		transport  error
	)

	c.OnRequest(func(r *colly.Request) {
		// 应用自定义HTTP头部
		if f.headerProvider != nil {
			headers, err := f.headerProvider.GetHeaders()
			if err != nil {
				utils.Warnf("获取HTTP头部失败: %v", err)
			} else {
				for name, values := range headers {
					if len(values) > 0 {
						r.Headers.Set(name, values[0])
					}
				}
			}
		}
		utils.Debugf("访问: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = decompressBody(r.Headers.Get("Content-Encoding"), r.Body, targetURL)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		transport = err
	})

	if err := c.Visit(targetURL); err != nil {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureNetwork, Cause: err}
	}
	c.Wait()

	if transport != nil {
		if statusCode >= 400 {
			return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureHTTP, StatusCode: statusCode, Cause: transport}
		}
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureNetwork, Cause: transport}
	}
	if statusCode >= 400 {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureHTTP, StatusCode: statusCode}
	}
	if body == nil {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureNetwork,
			Cause: fmt.Errorf("未收到响应")}
	}

	return body, nil
}

// decompressBody 根据Content-Encoding解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
// 解压失败时退回原始内容
func decompressBody(contentEncoding string, body []byte, targetURL string) []byte {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			utils.Warnf("gzip解压失败 [%s]: %v", targetURL, err)
			return body
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			utils.Warnf("gzip读取失败 [%s]: %v", targetURL, err)
			return body
		}
		return decompressed

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			utils.Warnf("deflate读取失败 [%s]: %v", targetURL, err)
			return body
		}
		return decompressed

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			utils.Warnf("brotli读取失败 [%s]: %v", targetURL, err)
			return body
		}
		return decompressed

	case "":
		return body

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body
	}
}
