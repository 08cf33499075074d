package nginx

// SiteTemplate is the production site configuration. TLS terminates on
// 443 with the letsencrypt pair for the node host, port 80 only
// redirects, and every location sits behind Basic Auth. The supervisor
// control panel and the API backend are assumed to be listening on
// their configured ports already.
const SiteTemplate = `
map $http_upgrade $connection_upgrade {
    default upgrade;
    ''      close;
}

server {
    listen 80;
    server_name {{.NodeHost}};

    return 301 https://$host$request_uri;
}

server {
    listen 443 ssl;
    server_name {{.NodeHost}};

    ssl_certificate     /etc/letsencrypt/live/{{.NodeHost}}/fullchain.pem;
    ssl_certificate_key /etc/letsencrypt/live/{{.NodeHost}}/privkey.pem;

    location / {
        auth_basic           "Restricted";
        auth_basic_user_file {{.InstallDir}}/htpasswd;

        root  {{.InstallDir}}/public;
        index index.html;
        try_files $uri $uri/ =404;
    }

    location /supervisor/ {
        auth_basic           "Restricted";
        auth_basic_user_file {{.InstallDir}}/htpasswd;

        proxy_pass http://127.0.0.1:{{.SupervisorPort}}/;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }

    location /api/ {
        auth_basic           "Restricted";
        auth_basic_user_file {{.InstallDir}}/htpasswd;

        proxy_pass http://127.0.0.1:{{.APIPort}}/;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }

    location /api/ws/ {
        auth_basic           "Restricted";
        auth_basic_user_file {{.InstallDir}}/htpasswd;

        proxy_pass http://127.0.0.1:{{.APIPort}}/ws/;
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection $connection_upgrade;
        proxy_set_header Host $host;
        proxy_read_timeout 86400;
    }
}
`

// DockerSiteTemplate is the simplified site configuration for container
// deployments: plain HTTP, static files at the root, the same API and
// WebSocket proxying, no auth and no supervisor panel.
const DockerSiteTemplate = `
map $http_upgrade $connection_upgrade {
    default upgrade;
    ''      close;
}

server {
    listen 80;
    server_name {{.NodeHost}};

    location / {
        root  {{.InstallDir}}/public;
        index index.html;
        try_files $uri $uri/ =404;
    }

    location /api/ {
        proxy_pass http://127.0.0.1:{{.APIPort}}/;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }

    location /api/ws/ {
        proxy_pass http://127.0.0.1:{{.APIPort}}/ws/;
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection $connection_upgrade;
        proxy_set_header Host $host;
        proxy_read_timeout 86400;
    }
}
`
