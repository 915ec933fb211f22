package site

import (
	"slices"

	"github.com/bluebird-io/portal/internal/config"
)

// Info is the site configuration a front end needs to render itself.
type Info struct {
	Name          string                `json:"siteName"`
	Description   string                `json:"siteDescription"`
	LogoURL       string                `json:"logoUrl"`
	BackgroundURL string                `json:"backgroundUrl"`
	APIBaseURL    string                `json:"apiBaseUrl"`
	Locale        string                `json:"locale"`
	EmailSuffixes []string              `json:"emailSuffixes"`
	Features      config.FeaturesConfig `json:"features"`
}

type Plan struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Period      string   `json:"period"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var defaultPlans = []Plan{
	{
		Name:        "基础版",
		Price:       "¥19",
		Period:      "/月",
		Description: "适合轻度使用用户",
		Features:    []string{"100GB 月流量", "5个设备同时在线", "全球节点访问", "7x24小时客服支持"},
	},
	{
		Name:        "专业版",
		Price:       "¥39",
		Period:      "/月",
		Description: "适合重度使用用户",
		Features:    []string{"500GB 月流量", "10个设备同时在线", "全球节点访问", "优先客服支持", "流媒体解锁"},
		Popular:     true,
	},
	{
		Name:        "企业版",
		Price:       "¥99",
		Period:      "/月",
		Description: "适合团队和企业用户",
		Features:    []string{"2TB 月流量", "无限设备同时在线", "全球节点访问", "专属客服支持", "流媒体解锁", "专线加速"},
	},
}

var defaultFAQ = []FAQ{
	{
		Question: "如何开始使用服务？",
		Answer:   "注册账户后，选择适合您的套餐，完成支付即可开始使用。我们会为您提供详细的配置指南。",
	},
	{
		Question: "支持哪些设备？",
		Answer:   "我们支持 Windows、macOS、iOS、Android 等主流操作系统，以及各种路由器设备。",
	},
	{
		Question: "如何联系客服？",
		Answer:   "您可以通过工单系统、在线客服或邮件联系我们，我们提供 7x24 小时技术支持。",
	},
	{
		Question: "是否支持退款？",
		Answer:   "我们提供 7 天无理由退款保证，如果您对服务不满意，可以申请全额退款。",
	},
	{
		Question: "流量用完了怎么办？",
		Answer:   "当月流量用完后，您可以购买流量包或升级到更高级的套餐。",
	},
	{
		Question: "服务稳定性如何？",
		Answer:   "我们承诺 99.9% 的服务可用性，拥有多个备用节点确保服务稳定运行。",
	},
}

// Content holds the presentational data. It is read only once built.
type Content struct {
	info  Info
	plans []Plan
	faq   []FAQ
}

func New(cfg *config.Config) *Content {
	content := &Content{
		info: Info{
			Name:          cfg.Site.Name,
			Description:   cfg.Site.Description,
			LogoURL:       cfg.Site.LogoURL,
			BackgroundURL: cfg.Site.BackgroundURL,
			APIBaseURL:    cfg.API.BaseURL,
			Locale:        cfg.Site.Locale,
			EmailSuffixes: slices.Clone(cfg.GetEmailSuffixes()),
			Features:      cfg.Features,
		},
		plans: defaultPlans,
		faq:   defaultFAQ,
	}

	if len(cfg.Site.Plans) > 0 {
		content.plans = make([]Plan, 0, len(cfg.Site.Plans))
		for _, plan := range cfg.Site.Plans {
			content.plans = append(content.plans, Plan{
				Name:        plan.Name,
				Price:       plan.Price,
				Period:      plan.Period,
				Description: plan.Description,
				Features:    slices.Clone(plan.Features),
				Popular:     plan.Popular,
			})
		}
	}

	if len(cfg.Site.FAQ) > 0 {
		content.faq = make([]FAQ, 0, len(cfg.Site.FAQ))
		for _, entry := range cfg.Site.FAQ {
			content.faq = append(content.faq, FAQ{
				Question: entry.Question,
				Answer:   entry.Answer,
			})
		}
	}

	return content
}

func (c *Content) Info() Info {
	info := c.info
	info.EmailSuffixes = slices.Clone(c.info.EmailSuffixes)
	return info
}

func (c *Content) Plans() []Plan {
	plans := make([]Plan, len(c.plans))
	for i, plan := range c.plans {
		plan.Features = slices.Clone(plan.Features)
		plans[i] = plan
	}
	return plans
}

func (c *Content) FAQ() []FAQ {
	return slices.Clone(c.faq)
}

// PopularPlan returns the highlighted plan, if any.
func (c *Content) PopularPlan() (Plan, bool) {
	for _, plan := range c.Plans() {
		if plan.Popular {
			return plan, true
		}
	}
	return Plan{}, false
}
